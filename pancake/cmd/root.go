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

// Package cmd is the command line of pancake, the HiFi overlap engine.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/mitchellh/go-homedir"
	"github.com/pelletier/go-toml/v2"
	"github.com/shenwei356/util/pathutil"
	"github.com/spf13/cobra"
)

// VERSION of pancake
const VERSION = "0.1.0"

// ConfigFile is looked up in the home directory; values there override
// the built-in flag defaults, and explicit flags override both.
const ConfigFile = ".pancake.toml"

// Config holds the defaults loadable from the config file.
type Config struct {
	Threads int  `toml:"threads"`
	Quiet   bool `toml:"quiet"`
}

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "pancake",
	Short: "overlapping of PacBio HiFi reads",
	Long: fmt.Sprintf(`pancake: overlapping of PacBio HiFi reads

Version: v%s

`, VERSION),
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	loadConfig()
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig applies ~/.pancake.toml over the flag defaults.
// A missing file is not an error, a broken one is.
func loadConfig() {
	home, err := homedir.Dir()
	if err != nil {
		return
	}
	file := filepath.Join(home, ConfigFile)
	existed, err := pathutil.Exists(file)
	if err != nil || !existed {
		return
	}

	data, err := os.ReadFile(file)
	checkError(err)

	var conf Config
	if err = toml.Unmarshal(data, &conf); err != nil {
		checkError(fmt.Errorf("failed to parse config file %s: %s", file, err))
	}

	if conf.Threads > 0 {
		RootCmd.PersistentFlags().Lookup("threads").DefValue = fmt.Sprintf("%d", conf.Threads)
		checkError(RootCmd.PersistentFlags().Set("threads", fmt.Sprintf("%d", conf.Threads)))
	}
	if conf.Quiet {
		checkError(RootCmd.PersistentFlags().Set("quiet", "true"))
	}
}

func init() {
	RootCmd.PersistentFlags().IntP("threads", "j", runtime.NumCPU(),
		formatFlagUsage("Number of CPU cores to use (0 for all)."))
	RootCmd.PersistentFlags().BoolP("quiet", "", false,
		formatFlagUsage("Do not print any verbose information."))
	RootCmd.PersistentFlags().StringP("log", "", "",
		formatFlagUsage("Log file."))

	RootCmd.CompletionOptions.DisableDefaultCmd = true
	RootCmd.SetUsageTemplate(usageTemplate("[command]"))
}
