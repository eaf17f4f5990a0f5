// Package project inspects a host web project on disk.
package project

import (
	"os"
	"path/filepath"

	"github.com/titanous/json5"
)

// Framework identifies how a host project is built.
type Framework string

const (
	NextApp   Framework = "next-app"
	NextPages Framework = "next-pages"
	Vite      Framework = "vite"
	CRA       Framework = "cra"
	Unknown   Framework = "unknown"
)

type entryFile struct {
	path      string
	framework Framework
}

// entryFiles lists React entry files in priority order.
var entryFiles = []entryFile{
	{"src/app/layout.tsx", NextApp},
	{"src/app/layout.jsx", NextApp},
	{"app/layout.tsx", NextApp},
	{"app/layout.jsx", NextApp},
	{"src/main.tsx", Vite},
	{"src/main.jsx", Vite},
	{"src/index.tsx", CRA},
	{"src/index.jsx", CRA},
	{"pages/_app.tsx", NextPages},
	{"src/pages/_app.tsx", NextPages},
	{"pages/_app.jsx", NextPages},
	{"src/pages/_app.jsx", NextPages},
}

type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// DetectFramework reads dir/package.json. A Next.js project is reported as
// next-pages only when it has a pages/_app entry and no app/layout entry.
// A missing or unreadable package.json yields Unknown.
func DetectFramework(dir string) Framework {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return Unknown
	}
	var pkg packageJSON
	if err := json5.Unmarshal(data, &pkg); err != nil {
		return Unknown
	}
	has := func(name string) bool {
		_, ok := pkg.Dependencies[name]
		if !ok {
			_, ok = pkg.DevDependencies[name]
		}
		return ok
	}

	switch {
	case has("next"):
		if firstEntry(dir, NextApp) == "" && firstEntry(dir, NextPages) != "" {
			return NextPages
		}
		return NextApp
	case has("vite"):
		return Vite
	case has("react-scripts"):
		return CRA
	}
	return Unknown
}

// FindEntryFile returns the project's React entry file, preferring files of
// fw, or "" when none exists.
func FindEntryFile(dir string, fw Framework) string {
	if p := firstEntry(dir, fw); p != "" {
		return p
	}
	for _, e := range entryFiles {
		if p := filepath.Join(dir, e.path); fileExists(p) {
			return p
		}
	}
	return ""
}

func firstEntry(dir string, fw Framework) string {
	for _, e := range entryFiles {
		if e.framework != fw {
			continue
		}
		if p := filepath.Join(dir, e.path); fileExists(p) {
			return p
		}
	}
	return ""
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
