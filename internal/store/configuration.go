// Package store persists the resolved toolchain as a flat "key = literal"
// file and commits a new resolution only when it differs from the last one.
package store

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cudaconf/internal/fsutil"
	"cudaconf/internal/logging"
	"cudaconf/internal/toolkit"
	"cudaconf/internal/version"
)

// SchemaVersion is the layout written by this package.
const SchemaVersion = 1

const header = "# cudaconf toolchain configuration; regenerate with `cudaconf resolve`\n"

// Configuration is one persisted resolution.
type Configuration struct {
	Schema        int
	Resolved      bool
	Driver        version.Version
	Backend       version.Version
	Toolkit       version.Version
	ToolkitSource toolkit.Source
	ToolkitRoots  []string
	Targets       []version.Version
	ISAs          []version.Version
	// Paths has one entry per component; "" means absent.
	Paths map[toolkit.Component]string
}

// Provisional returns the marker written while a resolution is running.
func Provisional() Configuration {
	return Configuration{Schema: SchemaVersion}
}

// Available reports whether consumers may use the configuration.
func (c Configuration) Available() bool {
	return c.Schema == SchemaVersion && c.Resolved
}

// Path returns the persisted path of a component.
func (c Configuration) Path(comp toolkit.Component) (string, bool) {
	p := c.Paths[comp]
	return p, p != ""
}

// Equal compares every persisted field.
func (c Configuration) Equal(o Configuration) bool {
	if c.Schema != o.Schema || c.Resolved != o.Resolved ||
		c.Driver != o.Driver || c.Backend != o.Backend || c.Toolkit != o.Toolkit ||
		c.ToolkitSource != o.ToolkitSource {
		return false
	}
	if !slices.Equal(c.ToolkitRoots, o.ToolkitRoots) ||
		!slices.Equal(c.Targets, o.Targets) || !slices.Equal(c.ISAs, o.ISAs) {
		return false
	}
	for _, comp := range toolkit.Components {
		if c.Paths[comp] != o.Paths[comp] {
			return false
		}
	}
	return true
}

func pathKey(c toolkit.Component) string {
	return "path_" + strings.ReplaceAll(string(c), "-", "_")
}

// Encode renders c with a fixed key order.
func (c Configuration) Encode() []byte {
	var b bytes.Buffer
	b.WriteString(header)

	line := func(key string, l literal) {
		fmt.Fprintf(&b, "%s = %s\n", key, l)
	}

	line("schema", literal{kind: kindInt, num: c.Schema})
	line("resolved", literal{kind: kindBool, flag: c.Resolved})
	line("driver_version", versionLiteral(c.Driver))
	line("backend_version", versionLiteral(c.Backend))
	line("toolkit_version", versionLiteral(c.Toolkit))
	line("toolkit_source", stringLiteral(string(c.ToolkitSource)))
	line("toolkit_roots", stringsLiteral(c.ToolkitRoots))
	line("target_capabilities", versionsLiteral(c.Targets))
	line("isa_versions", versionsLiteral(c.ISAs))
	for _, comp := range toolkit.Components {
		line(pathKey(comp), stringLiteral(c.Paths[comp]))
	}

	return b.Bytes()
}

// Decode parses persisted content. Comments, unknown keys, malformed lines
// and values of the wrong type are skipped.
func Decode(data []byte) Configuration {
	c := Configuration{Paths: make(map[toolkit.Component]string, len(toolkit.Components))}

	paths := make(map[string]toolkit.Component, len(toolkit.Components))
	for _, comp := range toolkit.Components {
		paths[pathKey(comp)] = comp
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		key, raw, ok := strings.Cut(text, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		l, err := parseLiteral(strings.TrimSpace(raw))
		if err != nil {
			continue
		}

		switch key {
		case "schema":
			if l.kind == kindInt {
				c.Schema = l.num
			}
		case "resolved":
			if l.kind == kindBool {
				c.Resolved = l.flag
			}
		case "driver_version":
			c.Driver, _ = l.version()
		case "backend_version":
			c.Backend, _ = l.version()
		case "toolkit_version":
			c.Toolkit, _ = l.version()
		case "toolkit_source":
			c.ToolkitSource = toolkit.Source(l.optionalString())
		case "toolkit_roots":
			c.ToolkitRoots = l.strings()
		case "target_capabilities":
			c.Targets = l.versions()
		case "isa_versions":
			c.ISAs = l.versions()
		default:
			if comp, ok := paths[key]; ok {
				c.Paths[comp] = l.optionalString()
			}
		}
	}

	return c
}

func stringLiteral(s string) literal {
	if s == "" {
		return literal{kind: kindNone}
	}
	return literal{kind: kindString, str: s}
}

func stringsLiteral(ss []string) literal {
	items := make([]literal, len(ss))
	for i, s := range ss {
		items[i] = literal{kind: kindString, str: s}
	}
	return literal{kind: kindList, list: items}
}

func versionLiteral(v version.Version) literal {
	if v.IsZero() {
		return literal{kind: kindNone}
	}
	t := []int{v.Major, v.Minor}
	if v.Patch != 0 {
		t = append(t, v.Patch)
	}
	return literal{kind: kindTuple, tuple: t}
}

func versionsLiteral(vs []version.Version) literal {
	items := make([]literal, len(vs))
	for i, v := range vs {
		items[i] = versionLiteral(v)
	}
	return literal{kind: kindList, list: items}
}

func (l literal) version() (version.Version, bool) {
	if l.kind != kindTuple || len(l.tuple) < 2 || len(l.tuple) > 3 {
		return version.Version{}, false
	}
	v := version.Version{Major: l.tuple[0], Minor: l.tuple[1]}
	if len(l.tuple) == 3 {
		v.Patch = l.tuple[2]
	}
	return v, true
}

func (l literal) optionalString() string {
	if l.kind == kindString {
		return l.str
	}
	return ""
}

func (l literal) strings() []string {
	if l.kind != kindList {
		return nil
	}
	out := make([]string, 0, len(l.list))
	for _, item := range l.list {
		if item.kind == kindString {
			out = append(out, item.str)
		}
	}
	return out
}

func (l literal) versions() []version.Version {
	if l.kind != kindList {
		return nil
	}
	out := make([]version.Version, 0, len(l.list))
	for _, item := range l.list {
		if v, ok := item.version(); ok {
			out = append(out, v)
		}
	}
	return out
}

// Load reads the configuration at path. A missing file is not an error and
// reports false.
func Load(path string) (Configuration, bool, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if os.IsNotExist(err) {
			return Configuration{}, false, nil
		}
		return Configuration{}, false, fmt.Errorf("failed to read configuration: %w", err)
	}
	return Decode(data), true, nil
}

// Save atomically writes c to path.
func Save(c Configuration, path string, logger *logging.Logger) error {
	if err := fsutil.EnsureStateDirectory(filepath.Dir(path)); err != nil {
		return err
	}
	data := c.Encode()
	if err := fsutil.AtomicWriteFile(path, data, 0o644, logger); err != nil {
		return err
	}
	logger.Debug("store.save", "Configuration saved", map[string]interface{}{
		"path":     path,
		"bytes":    len(data),
		"resolved": c.Resolved,
	})
	return nil
}
