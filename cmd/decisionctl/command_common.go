package main

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"text/tabwriter"
	"time"

	"decisionctl/internal/sanitize"
	"decisionctl/internal/types"

	"github.com/dustin/go-humanize"
)

const version = "dev"

func printProjects(output io.Writer, projects []*types.Project) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tNAME\tRECORDS\tACTIVE\tUPDATED")
	for _, project := range projects {
		fmt.Fprintf(writer, "%s\t%s\t%d\t%d\t%s\n",
			project.ID, project.DisplayName(), project.MemoryCount, project.ActiveMemoryCount, ago(project.UpdatedAt))
	}
	_ = writer.Flush()
}

func printSessions(output io.Writer, sessions []types.WorkSession) {
	writer := tabwriter.NewWriter(output, 0, 8, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tSTATUS\tSTARTED\tENDED\tMESSAGES\tTASK")
	for _, session := range sessions {
		ended := "-"
		if session.EndedAt != nil {
			ended = ago(*session.EndedAt)
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%d\t%s\n",
			session.ID, orDash(session.Status), ago(session.CreatedAt), ended, session.MessageCount, sanitize.Line(session.TaskDescription))
	}
	_ = writer.Flush()
}

func writeJSON(out io.Writer, payload any) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(payload)
}

func ago(at time.Time) string {
	if at.IsZero() {
		return "-"
	}
	return humanize.Time(at)
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func exitOnErr(label string, err error, stderr io.Writer) {
	if err == nil {
		return
	}
	fmt.Fprintf(stderr, "%s error: %v\n", label, err)
	os.Exit(1)
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok {
		var revision, modified string
		for _, setting := range info.Settings {
			switch setting.Key {
			case "vcs.revision":
				revision = setting.Value
			case "vcs.modified":
				modified = setting.Value
			}
		}
		if revision != "" {
			if modified == "true" {
				return revision + "-dirty"
			}
			return revision
		}
	}

	exe, err := os.Executable()
	if err == nil {
		file, err := os.Open(exe)
		if err == nil {
			defer file.Close()
			hasher := sha256.New()
			if _, err := io.Copy(hasher, file); err == nil {
				return fmt.Sprintf("bin-%x", hasher.Sum(nil)[:6])
			}
		}
	}
	return version
}
