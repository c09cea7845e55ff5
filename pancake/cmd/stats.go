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
	"strings"

	"github.com/Global19-atlassian-net/pancake/pancake/overlap"
	"github.com/Global19-atlassian-net/pancake/pancake/seeddb"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat"
)

var statsCmd = &cobra.Command{
	Use:   "seed-stats",
	Short: "Seed frequency statistics of a SeedDB",
	Long: `Seed frequency statistics of a SeedDB

Builds the in-memory seed index and reports the distribution of bucket
sizes (how often each seed key occurs in the database), including the
frequency cutoff at the given percentile, which the overlap command
uses to skip over-represented seeds.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		prefix := getFlagString(cmd, "seeddb")
		if prefix == "" {
			checkError(fmt.Errorf("flag -d/--seeddb needed"))
		}
		percentile := getFlagNonNegativeFloat64(cmd, "freq-percentile")

		outFile := getFlagString(cmd, "out-file")

		cache, err := seeddb.LoadIndexCacheFromFile(prefix + seeddb.IndexFileExt)
		checkError(err)

		reader := seeddb.NewReader(cache)
		defer func() {
			checkError(reader.Close())
		}()

		seeds, err := reader.SeedsForAll()
		checkError(err)

		if opt.Verbose {
			log.Infof("%d seeds from %d sequences", len(seeds), len(cache.SeedsLines))
		}

		index := overlap.NewSeedIndex(cache, seeds)

		freqStats, err := index.ComputeFrequencyStats(percentile)
		checkError(err)

		// bucket sizes again for the extra moments
		sizes := make([]float64, 0, 1024)
		seen := make(map[uint64]interface{}, 1024)
		var key uint64
		for _, s := range seeds {
			key = s.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			sizes = append(sizes, float64(len(index.Seeds(key))))
		}
		mean, stdev := stat.MeanStdDev(sizes, nil)

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
		checkError(err)
		defer func() {
			outfh.Flush()
			if gw != nil {
				gw.Close()
			}
			w.Close()
		}()

		fmt.Fprintf(outfh, "sequences\t%d\n", len(cache.SeedsLines))
		fmt.Fprintf(outfh, "blocks\t%d\n", len(cache.BlockLines))
		fmt.Fprintf(outfh, "seeds\t%d\n", index.NumSeeds())
		fmt.Fprintf(outfh, "distinct_keys\t%d\n", len(sizes))
		fmt.Fprintf(outfh, "freq_max\t%d\n", freqStats.Max)
		fmt.Fprintf(outfh, "freq_avg\t%.4f\n", freqStats.Avg)
		fmt.Fprintf(outfh, "freq_stdev\t%.4f\n", stdev)
		fmt.Fprintf(outfh, "freq_median\t%.1f\n", freqStats.Median)
		fmt.Fprintf(outfh, "freq_cutoff\t%d\tpercentile=%.4g\n", freqStats.Cutoff, percentile)

		// consistency check of the two computations
		if len(sizes) > 0 && mean != freqStats.Avg {
			log.Debugf("mean of bucket sizes: %.6f vs %.6f", mean, freqStats.Avg)
		}
	},
}

func init() {
	RootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringP("seeddb", "d", "",
		formatFlagUsage(`Prefix of the SeedDB files.`))
	statsCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports a ".gz" suffix ("-" for stdout).`))
	statsCmd.Flags().Float64P("freq-percentile", "f", 0.0002,
		formatFlagUsage(`Report the frequency cutoff at this percentile.`))

	statsCmd.SetUsageTemplate(usageTemplate("-d <seeddb prefix>"))
}
