package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/nao1215/shotdiff/internal/model"
)

// Environment is one deployment of the site under test.
type Environment struct {
	// BaseURL is the absolute URL page paths are joined to.
	BaseURL string `yaml:"base_url"`

	// Pages are page paths relative to BaseURL, e.g. "/pricing".
	Pages []string `yaml:"pages,omitempty"`

	// Headers are extra HTTP headers sent to this environment.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Cookie is sent as the Cookie header.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`
}

// DeviceSpec describes an emulated viewport.
type DeviceSpec struct {
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	Scale     float64 `yaml:"scale,omitempty"`
	Mobile    bool    `yaml:"mobile,omitempty"`
	UserAgent string  `yaml:"user_agent,omitempty"`
}

// File represents the structure of the .shotdiff configuration file.
type File struct {
	// Reference is the environment treated as the source of truth.
	Reference string `yaml:"reference,omitempty"`

	// Candidate is the environment compared against the reference.
	Candidate string `yaml:"candidate,omitempty"`

	Environments map[string]Environment `yaml:"environments"`

	// Devices maps a device name to its viewport. Empty means a single
	// 1280x800 desktop device.
	Devices map[string]DeviceSpec `yaml:"devices,omitempty"`
}

// applyDefaults fills the environment names left empty.
func (f *File) applyDefaults() {
	if f.Reference == "" {
		f.Reference = DefaultReference
	}
	if f.Candidate == "" {
		f.Candidate = DefaultCandidate
	}
	if f.Environments == nil {
		f.Environments = make(map[string]Environment)
	}
}

// Validate checks the environments, pages and devices of the file.
func (f *File) Validate() error {
	if f.Reference == f.Candidate {
		return ErrSameEnvironment
	}
	for _, name := range []string{f.Reference, f.Candidate} {
		env, ok := f.Environments[name]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownEnvironment, name)
		}
		if _, err := baseHost(env.BaseURL); err != nil {
			return fmt.Errorf("environment %q: %w", name, err)
		}
	}
	if len(f.Pages()) == 0 {
		return ErrNoPages
	}
	for name, spec := range f.Devices {
		if spec.Width <= 0 || spec.Height <= 0 || spec.Scale < 0 {
			return fmt.Errorf("%w: %q is %dx%d scale %g", ErrInvalidDevice, name, spec.Width, spec.Height, spec.Scale)
		}
	}
	return nil
}

// Pages returns the page paths to compare: the reference environment's pages
// in order, followed by candidate pages the reference does not list.
// Duplicates and blank entries are dropped.
func (f *File) Pages() []string {
	seen := make(map[string]bool)
	var pages []string
	for _, name := range []string{f.Reference, f.Candidate} {
		for _, p := range f.Environments[name].Pages {
			p = normalizePage(p)
			if p == "" || seen[p] {
				continue
			}
			seen[p] = true
			pages = append(pages, p)
		}
	}
	return pages
}

// Targets returns one PageTarget per page in Pages order.
func (f *File) Targets() []model.PageTarget {
	ref := f.Environments[f.Reference]
	cand := f.Environments[f.Candidate]

	pages := f.Pages()
	targets := make([]model.PageTarget, 0, len(pages))
	for _, p := range pages {
		targets = append(targets, model.NewPageTarget(p, ref.BaseURL, cand.BaseURL))
	}
	return targets
}

// DeviceNames returns the configured device names sorted alphabetically.
func (f *File) DeviceNames() []string {
	if len(f.Devices) == 0 {
		return []string{DefaultDevice}
	}
	names := make([]string, 0, len(f.Devices))
	for name := range f.Devices {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Device returns the named device.
func (f *File) Device(name string) (model.Device, error) {
	if len(f.Devices) == 0 && name == DefaultDevice {
		return model.Device{Name: DefaultDevice, Width: DefaultWidth, Height: DefaultHeight, Scale: 1}, nil
	}
	spec, ok := f.Devices[name]
	if !ok {
		return model.Device{}, fmt.Errorf("%w: %q (available: %s)", ErrUnknownDevice, name, strings.Join(f.DeviceNames(), ", "))
	}
	scale := spec.Scale
	if scale == 0 {
		scale = 1
	}
	return model.Device{
		Name:   name,
		Width:  spec.Width,
		Height: spec.Height,
		Scale:  scale,
		Mobile: spec.Mobile,
	}, nil
}

// UserAgent returns the user agent override of the named device, if any.
func (f *File) UserAgent(device string) string {
	return f.Devices[device].UserAgent
}

// HostHeaders maps the host of the reference and candidate base URLs to the
// headers configured for that environment, including the Cookie header.
func (f *File) HostHeaders() (map[string]map[string]string, error) {
	headers := make(map[string]map[string]string)
	for _, name := range []string{f.Reference, f.Candidate} {
		env := f.Environments[name]
		if len(env.Headers) == 0 && env.Cookie == "" {
			continue
		}
		host, err := baseHost(env.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("environment %q: %w", name, err)
		}
		h := headers[host]
		if h == nil {
			h = make(map[string]string)
			headers[host] = h
		}
		for k, v := range env.Headers {
			h[k] = v
		}
		if env.Cookie != "" {
			h["Cookie"] = env.Cookie
		}
	}
	return headers, nil
}

func baseHost(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMissingBaseURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrMissingBaseURL, raw)
	}
	return u.Host, nil
}

func normalizePage(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
