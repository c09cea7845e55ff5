// Copyright © 2023-2024 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-colorable"
	"github.com/shenwei356/go-logging"
)

var log = logging.MustGetLogger("pancake")

func init() {
	format := logging.MustStringFormatter(
		`%{color}%{time:15:04:05.000} %{color:reset}[%{level:.4s}] %{message}`,
	)
	backend := logging.NewLogBackend(colorable.NewColorableStderr(), "", 0)
	logging.SetBackend(logging.NewBackendFormatter(backend, format))
}

// addLog tees the log to a file in addition to stderr.
// The returned handle has to be closed by the caller.
func addLog(file string, verbose bool) *os.File {
	fh, err := os.Create(file)
	checkError(err)

	var w io.Writer = fh
	format := logging.MustStringFormatter(
		`%{time:15:04:05.000} [%{level:.4s}] %{message}`,
	)
	backendFile := logging.NewBackendFormatter(logging.NewLogBackend(w, "", 0), format)

	if verbose {
		formatStderr := logging.MustStringFormatter(
			`%{color}%{time:15:04:05.000} %{color:reset}[%{level:.4s}] %{message}`,
		)
		backendStderr := logging.NewBackendFormatter(
			logging.NewLogBackend(colorable.NewColorableStderr(), "", 0), formatStderr)
		logging.SetBackend(backendStderr, backendFile)
	} else {
		logging.SetBackend(backendFile)
	}

	return fh
}

func checkError(err error) {
	if err != nil {
		log.Error(err)
		os.Exit(1)
	}
}

func isStdin(file string) bool {
	return file == "-"
}

func formatFlagUsage(usage string) string {
	return usage
}

func usageTemplate(usage string) string {
	return fmt.Sprintf(`Usage:{{if .Runnable}}
  %s %s{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}

Available Commands:{{range .Commands}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasHelpSubCommands}}

Additional help topics:{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .CommandPath .CommandPathPadding}} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`, "{{.CommandPath}}", usage)
}
