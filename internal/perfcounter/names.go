package perfcounter

// Name identifies one of the recognized performance counters.
type Name int

const (
	// IISRequestsPerSecond is the web server request rate.
	IISRequestsPerSecond Name = iota

	// IISRequestDurationAverage is the average web server request duration in ticks.
	IISRequestDurationAverage

	// IISRequestsFailedTotal is the total number of failed web server requests.
	IISRequestsFailedTotal

	// IISRequestsSucceededTotal is the total number of succeeded web server requests.
	IISRequestsSucceededTotal

	// IISQueueSize is the web server request queue length.
	IISQueueSize

	// CPUUtilization is the processor utilization in percent.
	CPUUtilization

	// MemoryInBytes is the committed memory of the process.
	MemoryInBytes

	nameCount
)

var names = [nameCount]string{
	IISRequestsPerSecond:      "PerfIisRequestsPerSecond",
	IISRequestDurationAverage: "PerfIisRequestDurationAve",
	IISRequestsFailedTotal:    "PerfIisRequestsFailedTotal",
	IISRequestsSucceededTotal: "PerfIisRequestsSucceededTotal",
	IISQueueSize:              "PerfIisQueueSize",
	CPUUtilization:            "PerfCpuUtilization",
	MemoryInBytes:             "PerfMemoryInBytes",
}

// String returns the lookup key for the counter.
func (n Name) String() string {
	if n < 0 || n >= nameCount {
		return "Unknown"
	}
	return names[n]
}

// AllNames returns the recognized counters in declaration order.
func AllNames() []Name {
	all := make([]Name, 0, nameCount)
	for n := Name(0); n < nameCount; n++ {
		all = append(all, n)
	}
	return all
}

// Parse returns the counter with the given lookup key.
func Parse(key string) (Name, bool) {
	for n, s := range names {
		if s == key {
			return Name(n), true
		}
	}
	return 0, false
}

// Known reports whether key is one of the recognized counter names.
func Known(key string) bool {
	_, ok := Parse(key)
	return ok
}
