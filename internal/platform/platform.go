// Package platform wraps the host facilities quickpulse reads at startup:
// environment variables, the configuration file, the machine name and the
// debug output writer. Every lookup tolerates failure and degrades to an
// empty value.
package platform

import (
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
)

// Options customize a Platform. Zero values fall back to the real host.
type Options struct {
	// Environ is the environment in "KEY=value" form (default: os.Environ())
	Environ []string

	// Hostname resolves the machine name (default: os.Hostname)
	Hostname func() (string, error)

	// Domain resolves the DNS domain appended to the machine name. It
	// defaults to a DNS lookup of the host only when Hostname is defaulted
	// too; otherwise nil means no domain.
	Domain func(host string) (string, error)

	// DebugWriter receives debug output (default: os.Stderr)
	DebugWriter io.Writer

	// NoColor disables colored debug output
	NoColor bool
}

// Platform gives access to host facilities.
type Platform struct {
	environment map[string]string
	hostnameFn  func() (string, error)
	domainFn    func(host string) (string, error)
	debugWriter io.Writer
	noColor     bool

	hostOnce sync.Once
	hostName string

	debugOnce   sync.Once
	debugOutput *DebugOutput
}

// New creates a Platform backed by the current process.
func New() *Platform {
	return NewWithOptions(Options{})
}

// NewWithOptions creates a Platform. The environment is captured once here.
func NewWithOptions(opts Options) *Platform {
	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	if opts.Hostname == nil {
		opts.Hostname = os.Hostname
		if opts.Domain == nil {
			opts.Domain = lookupDomain
		}
	}
	if opts.DebugWriter == nil {
		opts.DebugWriter = os.Stderr
	}

	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}

	return &Platform{
		environment: env,
		hostnameFn:  opts.Hostname,
		domainFn:    opts.Domain,
		debugWriter: opts.DebugWriter,
		noColor:     opts.NoColor,
	}
}

// TryGetEnvironmentVariable returns the value of name and whether it is set
// to a non-empty value. It panics when name is blank.
func (p *Platform) TryGetEnvironmentVariable(name string) (string, bool) {
	if strings.TrimSpace(name) == "" {
		panic("platform: environment variable name is required")
	}

	value := p.environment[name]
	return value, value != ""
}

// ReadConfiguration returns the contents of the file at path, or "" when it
// cannot be read.
func (p *Platform) ReadConfiguration(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			p.DebugOutput().Warnf("configuration file not found: %s", path)
		} else {
			p.DebugOutput().Warnf("configuration file not accessible: %v", err)
		}
		return ""
	}
	return string(data)
}

// MachineName returns the fully qualified host name, resolved once. The
// domain is appended unless the host name already ends with it. Failing to
// read the host name gives ""; failing to resolve the domain gives the bare
// host name.
func (p *Platform) MachineName() string {
	p.hostOnce.Do(func() {
		name, err := p.hostnameFn()
		if err != nil {
			p.DebugOutput().Warnf("failed to get machine name: %v", err)
			return
		}
		p.hostName = name

		if p.domainFn == nil {
			return
		}
		domain, err := p.domainFn(name)
		if err != nil {
			p.DebugOutput().Warnf("failed to get domain name: %v", err)
			return
		}
		domain = strings.Trim(domain, ".")
		if domain != "" && !strings.HasSuffix(strings.ToLower(name), strings.ToLower(domain)) {
			p.hostName = name + "." + domain
		}
	})
	return p.hostName
}

// lookupDomain returns the domain part of host's canonical DNS name, or ""
// when the canonical name is not host.domain.
func lookupDomain(host string) (string, error) {
	cname, err := net.LookupCNAME(host)
	if err != nil {
		return "", err
	}
	_, domain, ok := strings.Cut(strings.TrimSuffix(cname, "."), ".")
	if !ok {
		return "", nil
	}
	return domain, nil
}

// DebugOutput returns the shared debug writer.
func (p *Platform) DebugOutput() *DebugOutput {
	p.debugOnce.Do(func() {
		p.debugOutput = NewDebugOutput(p.debugWriter, p.noColor)
	})
	return p.debugOutput
}

// DebugWriter returns the writer behind DebugOutput.
func (p *Platform) DebugWriter() io.Writer {
	return p.debugWriter
}

// String describes the platform for diagnostics.
func (p *Platform) String() string {
	return fmt.Sprintf("platform(host=%q, env=%d vars)", p.MachineName(), len(p.environment))
}
