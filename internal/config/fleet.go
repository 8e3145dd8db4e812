package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/hamed0406/healthalert/internal/domain"
)

// Fleet files are decoded with yaml.v3 rather than viper: viper folds keys
// to lower case, and group, subgroup and target names are data here.
type fleetFile struct {
	Groups         map[string]map[string][]targetFile `yaml:"groups"`
	HealthCheckers map[string]healthCheckFile         `yaml:"healthCheckers"`
}

type targetFile struct {
	Name        string            `yaml:"name"`
	Host        string            `yaml:"host"`
	Port        int               `yaml:"port"`
	HealthCheck string            `yaml:"healthCheck"`
	Headers     map[string]string `yaml:"headers"`
	Proxy       *domain.Proxy     `yaml:"proxy"`
}

type healthCheckFile struct {
	Path               string            `yaml:"path"`
	Secure             bool              `yaml:"secure"`
	InsecureSkipVerify bool              `yaml:"insecureSkipVerify"`
	Timeout            *timeoutFile      `yaml:"timeout"`
	Proxy              *domain.Proxy     `yaml:"proxy"`
	Headers            map[string]string `yaml:"headers"`
	Status             []ruleFile        `yaml:"status"`
}

type timeoutFile struct {
	Timeout int    `yaml:"timeout"` // milliseconds
	Status  string `yaml:"status"`
}

type ruleFile struct {
	Name         string `yaml:"name"`
	StatusRegex  string `yaml:"statusRegex"`
	ContentRegex string `yaml:"contentRegex"`
}

// LoadFleet reads and validates one fleet file.
func LoadFleet(path string) (*domain.Fleet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Path: "file", Err: err}
	}
	return ParseFleet(data)
}

// ParseFleet decodes a fleet document. Unknown keys are rejected.
func ParseFleet(data []byte) (*domain.Fleet, error) {
	var ff fleetFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&ff); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ConfigurationError{Path: "yaml", Err: err}
	}

	var errs error
	fleet := &domain.Fleet{
		Groups:       map[string]map[string][]domain.Target{},
		HealthChecks: map[string]*domain.HealthCheck{},
	}

	for _, name := range sortedKeys(ff.HealthCheckers) {
		hc, err := buildHealthCheck(name, ff.HealthCheckers[name])
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		fleet.HealthChecks[name] = hc
	}

	if len(ff.Groups) == 0 {
		errs = multierr.Append(errs, cfgErr("groups", "at least one group is required"))
	}
	for _, g := range sortedKeys(ff.Groups) {
		fleet.Groups[g] = map[string][]domain.Target{}
		for _, sg := range sortedKeys(ff.Groups[g]) {
			targets := make([]domain.Target, 0, len(ff.Groups[g][sg]))
			for i, tf := range ff.Groups[g][sg] {
				p := fmt.Sprintf("groups.%s.%s[%d]", g, sg, i)
				if err := validateTarget(p, tf, ff.HealthCheckers); err != nil {
					errs = multierr.Append(errs, err)
					continue
				}
				targets = append(targets, domain.Target{
					Group:       g,
					SubGroup:    sg,
					Name:        tf.Name,
					Host:        tf.Host,
					Port:        tf.Port,
					HealthCheck: tf.HealthCheck,
					Headers:     tf.Headers,
					Proxy:       tf.Proxy,
				})
			}
			fleet.Groups[g][sg] = targets
		}
	}

	if errs != nil {
		return nil, errs
	}
	return fleet, nil
}

func validateTarget(p string, tf targetFile, defs map[string]healthCheckFile) error {
	var errs error
	if strings.TrimSpace(tf.Name) == "" {
		errs = multierr.Append(errs, cfgErr(p+".name", "is required"))
	}
	if strings.TrimSpace(tf.Host) == "" {
		errs = multierr.Append(errs, cfgErr(p+".host", "is required"))
	}
	if tf.Port < 0 || tf.Port > 65535 {
		errs = multierr.Append(errs, cfgErr(p+".port", "%d out of range", tf.Port))
	}
	if tf.HealthCheck == "" {
		errs = multierr.Append(errs, cfgErr(p+".healthCheck", "is required"))
	} else if _, ok := defs[tf.HealthCheck]; !ok {
		errs = multierr.Append(errs, cfgErr(p+".healthCheck", "unknown health check %q", tf.HealthCheck))
	}
	if tf.Proxy != nil {
		errs = multierr.Append(errs, validateProxy(p+".proxy", tf.Proxy))
	}
	return errs
}

func validateProxy(p string, px *domain.Proxy) error {
	var errs error
	if px.Host == "" {
		errs = multierr.Append(errs, cfgErr(p+".host", "is required"))
	}
	if px.Port < 0 || px.Port > 65535 {
		errs = multierr.Append(errs, cfgErr(p+".port", "%d out of range", px.Port))
	}
	return errs
}

func buildHealthCheck(name string, f healthCheckFile) (*domain.HealthCheck, error) {
	p := "healthCheckers." + name
	var errs error

	hc := &domain.HealthCheck{
		Name:               name,
		Path:               f.Path,
		Secure:             f.Secure,
		InsecureSkipVerify: f.InsecureSkipVerify,
		Proxy:              f.Proxy,
		Headers:            f.Headers,
	}
	if hc.Path == "" {
		hc.Path = "/"
	} else if !strings.HasPrefix(hc.Path, "/") {
		errs = multierr.Append(errs, cfgErr(p+".path", "must start with /"))
	}
	if f.Proxy != nil {
		errs = multierr.Append(errs, validateProxy(p+".proxy", f.Proxy))
	}

	if f.Timeout != nil {
		if f.Timeout.Timeout <= 0 {
			errs = multierr.Append(errs, cfgErr(p+".timeout.timeout", "must be a positive number of milliseconds"))
		}
		hc.Timeout = &domain.Timeout{
			Duration: time.Duration(f.Timeout.Timeout) * time.Millisecond,
			Status:   f.Timeout.Status,
		}
	}

	for i, rf := range f.Status {
		rp := fmt.Sprintf("%s.status[%d]", p, i)
		rule := domain.StatusRule{Name: rf.Name}
		if rf.Name == "" {
			errs = multierr.Append(errs, cfgErr(rp+".name", "is required"))
		}
		if rf.StatusRegex == "" && rf.ContentRegex == "" {
			errs = multierr.Append(errs, cfgErr(rp, "statusRegex or contentRegex is required"))
		}
		if rf.StatusRegex != "" {
			re, err := regexp.Compile(rf.StatusRegex)
			if err != nil {
				errs = multierr.Append(errs, cfgErr(rp+".statusRegex", "%v", err))
			}
			rule.StatusPattern = re
		}
		if rf.ContentRegex != "" {
			re, err := regexp.Compile(rf.ContentRegex)
			if err != nil {
				errs = multierr.Append(errs, cfgErr(rp+".contentRegex", "%v", err))
			}
			rule.ContentPattern = re
		}
		hc.Rules = append(hc.Rules, rule)
	}

	if errs != nil {
		return nil, errs
	}
	return hc, nil
}

// Warnings lists fleet settings that load fine but are likely mistakes.
func Warnings(f *domain.Fleet) []string {
	var out []string
	for _, name := range sortedKeys(f.HealthChecks) {
		hc := f.HealthChecks[name]
		if hc.Timeout == nil {
			out = append(out, fmt.Sprintf("health check %q has no timeout; a hung target stalls its whole cycle", name))
		}
		if len(hc.Rules) == 0 {
			out = append(out, fmt.Sprintf("health check %q has no status rules; every response is %s", name, domain.StatusUnknown))
		}
	}
	for _, g := range sortedKeys(f.Groups) {
		for _, sg := range sortedKeys(f.Groups[g]) {
			seen := map[string]bool{}
			for _, t := range f.Groups[g][sg] {
				if seen[t.Name] {
					out = append(out, fmt.Sprintf("target name %q repeated in %s/%s; only the last status is kept", t.Name, g, sg))
				}
				seen[t.Name] = true
			}
		}
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
