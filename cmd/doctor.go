package cmd

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/nextlevelbuilder/vibetorch/internal/config"
	"github.com/nextlevelbuilder/vibetorch/internal/project"
	"github.com/nextlevelbuilder/vibetorch/internal/store/sqlite"
	"github.com/nextlevelbuilder/vibetorch/pkg/browser"
)

var headingStyle = lipgloss.NewStyle().Bold(true)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check Chrome, configuration, history store and the current project",
		Run: func(cmd *cobra.Command, args []string) {
			runDoctor(cmd.OutOrStdout())
		},
	}
}

func runDoctor(w io.Writer) {
	fmt.Fprintln(w, headingStyle.Render("vibetorch doctor"))
	fmt.Fprintf(w, "  Version:  %s\n", Version)
	fmt.Fprintf(w, "  OS:       %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "  Go:       %s\n", runtime.Version())
	fmt.Fprintln(w)

	cfgPath := resolveConfigPath()
	fmt.Fprintf(w, "  Config:   %s", cfgPath)
	if _, err := os.Stat(cfgPath); err != nil {
		fmt.Fprintln(w, dimStyle.Render(" (not found, using defaults)"))
	} else {
		fmt.Fprintln(w, okStyle.Render(" (OK)"))
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(w, "  %s %s\n", warnStyle.Render("Config error:"), err)
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, headingStyle.Render("  Browser:"))
	checkChrome(w, cfg.Browser.Bin)

	fmt.Fprintln(w)
	fmt.Fprintln(w, headingStyle.Render("  History:"))
	checkStore(w, cfg)

	fmt.Fprintln(w)
	fmt.Fprintln(w, headingStyle.Render("  Project:"))
	checkProject(w)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Doctor check complete.")
}

func checkChrome(w io.Writer, bin string) {
	if bin != "" {
		if _, err := exec.LookPath(bin); err != nil {
			status(w, "chrome", warnStyle.Render(bin+" NOT FOUND"))
			return
		}
		status(w, "chrome", bin)
		return
	}
	if p, ok := browser.LookPath(); ok {
		status(w, "chrome", p)
		return
	}
	status(w, "chrome", dimStyle.Render("not installed (downloaded on first inspect)"))
}

func checkStore(w io.Writer, cfg *config.Config) {
	path := cfg.StorePath()
	hist, err := sqlite.Open(path, cfg.Store.CacheSize)
	if err != nil {
		status(w, "store", warnStyle.Render(fmt.Sprintf("%s (%v)", path, err)))
		return
	}
	defer hist.Close()
	status(w, "store", path)
}

func checkProject(w io.Writer) {
	dir, err := os.Getwd()
	if err != nil {
		status(w, "dir", warnStyle.Render(err.Error()))
		return
	}
	fw := project.DetectFramework(dir)
	status(w, "framework", string(fw))
	if fw == project.Unknown {
		return
	}
	if entry := project.FindEntryFile(dir, fw); entry != "" {
		status(w, "entry", entry)
	} else {
		status(w, "entry", dimStyle.Render("not found"))
	}
}

func status(w io.Writer, name, value string) {
	fmt.Fprintf(w, "    %-12s %s\n", name+":", value)
}
