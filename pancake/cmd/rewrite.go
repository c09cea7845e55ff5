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
	"time"

	"github.com/Global19-atlassian-net/pancake/pancake/seeddb"
	"github.com/spf13/cobra"
)

var rewriteCmd = &cobra.Command{
	Use:   "rewrite",
	Short: "Rewrite a SeedDB with a new block layout",
	Long: `Rewrite a SeedDB with a new block layout

Reads an existing SeedDB and writes it under a new prefix, regrouping
the sequences into blocks of the given size. With --split-blocks each
block goes to its own .seeds file, which allows distributing the blocks
over machines.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		inPrefix := getFlagString(cmd, "seeddb")
		if inPrefix == "" {
			checkError(fmt.Errorf("flag -d/--seeddb needed"))
		}
		outPrefix := getFlagString(cmd, "out-prefix")
		if outPrefix == "" {
			checkError(fmt.Errorf("flag -o/--out-prefix needed"))
		}
		if outPrefix == inPrefix {
			checkError(fmt.Errorf("output prefix should differ from the input prefix"))
		}
		blockSize := getFlagPositiveInt(cmd, "block-size")
		splitBlocks := getFlagBool(cmd, "split-blocks")

		timeStart := time.Now()

		cache, err := seeddb.LoadIndexCacheFromFile(inPrefix + seeddb.IndexFileExt)
		checkError(err)

		reader := seeddb.NewReader(cache)
		defer func() {
			checkError(reader.Close())
		}()

		writer, err := seeddb.NewWriter(outPrefix, splitBlocks, cache.Params)
		checkError(err)

		var n int
		for i := range cache.SeedsLines {
			sl := &cache.SeedsLines[i]

			seeds, err := reader.SeedsForSequence(sl.SeqID)
			checkError(err)

			checkError(writer.WriteSeeds(sl.Header, sl.SeqID, sl.NumBases, seeds))
			n++
			if n == blockSize {
				writer.MarkBlockEnd()
				n = 0
			}
		}

		checkError(writer.WriteIndex())
		checkError(writer.Close())

		if opt.Verbose {
			out := writer.Cache()
			log.Infof("%d sequences rewritten into %d blocks and %d seeds files in %s",
				len(out.SeedsLines), len(out.BlockLines), len(out.FileLines),
				time.Since(timeStart))
			log.Infof("new index: %s%s", outPrefix, seeddb.IndexFileExt)
		}
	},
}

func init() {
	RootCmd.AddCommand(rewriteCmd)

	rewriteCmd.Flags().StringP("seeddb", "d", "",
		formatFlagUsage(`Prefix of the input SeedDB files.`))
	rewriteCmd.Flags().StringP("out-prefix", "o", "",
		formatFlagUsage(`Prefix of the output SeedDB files.`))
	rewriteCmd.Flags().IntP("block-size", "b", 1000,
		formatFlagUsage(`Number of sequences per block.`))
	rewriteCmd.Flags().BoolP("split-blocks", "s", false,
		formatFlagUsage(`Write each block into a separate .seeds file.`))

	rewriteCmd.SetUsageTemplate(usageTemplate("-d <in prefix> -o <out prefix> [-b 1000]"))
}
