// Package rulefile reads and writes comparison rule lists as YAML, TOML or
// JSON files, so rule sets can be kept next to the data they reconcile.
//
// All three formats share one shape:
//
//	name: CRM vs billing
//	description: Contacts that never reached billing
//	rules:
//	  - name: Email
//	    column1: email
//	    column2: contact_email
//	  - column1: phone
//	    column2: phone_number
//
// Rules without a name get "rule-N" when the file is decoded.
package rulefile

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/JonMunkholm/csvcompare/internal/core"
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// Format names a rule file encoding.
type Format string

const (
	YAML Format = "yaml"
	TOML Format = "toml"
	JSON Format = "json"
)

// ErrUnknownFormat is returned for extensions or format names that are not
// YAML, TOML or JSON.
var ErrUnknownFormat = errors.New("unknown rule file format")

// File is the on-disk form of a rule set.
type File struct {
	Name        string                `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Description string                `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty"`
	Rules       []core.ComparisonRule `json:"rules" yaml:"rules" toml:"rules"`
}

// ParseFormat accepts "yaml", "yml", "toml" or "json" in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "yaml", "yml":
		return YAML, nil
	case "toml":
		return TOML, nil
	case "json":
		return JSON, nil
	}
	return "", errors.WithHint(errors.Wrapf(ErrUnknownFormat, "%q", s), "Use a .yaml, .yml, .toml or .json file")
}

// FormatFromPath picks the format from the file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Decode reads a rule file. Unknown keys are rejected so typos such as
// "colum1" do not silently drop a rule. The rules are validated and named.
func Decode(r io.Reader, format Format) (*File, error) {
	var f File
	switch format {
	case YAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrap(err, "decode yaml rules")
		}
	case TOML:
		md, err := toml.NewDecoder(r).Decode(&f)
		if err != nil {
			return nil, errors.Wrap(err, "decode toml rules")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			keys := make([]string, len(undecoded))
			for i, k := range undecoded {
				keys[i] = k.String()
			}
			sort.Strings(keys)
			return nil, errors.Newf("decode toml rules: unknown keys %s", strings.Join(keys, ", "))
		}
	case JSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&f); err != nil {
			return nil, errors.Wrap(err, "decode json rules")
		}
	default:
		return nil, errors.Wrapf(ErrUnknownFormat, "%q", format)
	}

	rules, err := core.ValidateRules(f.Rules)
	if err != nil {
		return nil, err
	}
	f.Rules = rules
	f.Name = strings.TrimSpace(f.Name)
	return &f, nil
}

// Encode writes f in the given format.
func Encode(w io.Writer, f *File, format Format) error {
	switch format {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return errors.Wrap(err, "encode yaml rules")
		}
		return enc.Close()
	case TOML:
		return errors.Wrap(toml.NewEncoder(w).Encode(f), "encode toml rules")
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(f), "encode json rules")
	}
	return errors.Wrapf(ErrUnknownFormat, "%q", format)
}

// Load reads the rule file at path, choosing the format by extension.
func Load(path string) (*File, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read rule file")
	}

	f, err := Decode(bytes.NewReader(data), format)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	if f.Name == "" {
		f.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return f, nil
}

// Save writes f to path, choosing the format by extension.
func Save(path string, f *File) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, f, format); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, "write rule file")
	}
	return nil
}

// FromRuleSet converts a saved rule set to its file form.
func FromRuleSet(rs core.RuleSet) *File {
	return &File{
		Name:        rs.Name,
		Description: rs.Description,
		Rules:       append([]core.ComparisonRule(nil), rs.Rules...),
	}
}

// RuleSetInput converts the file to the input of Service.CreateRuleSet.
func (f *File) RuleSetInput() core.RuleSetInput {
	return core.RuleSetInput{
		Name:        f.Name,
		Description: f.Description,
		Rules:       append([]core.ComparisonRule(nil), f.Rules...),
	}
}
