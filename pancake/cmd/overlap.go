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
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/Global19-atlassian-net/pancake/pancake/overlap"
	"github.com/Global19-atlassian-net/pancake/pancake/seeddb"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

var overlapCmd = &cobra.Command{
	Use:   "overlap",
	Short: "Overlap HiFi reads against a SeedDB",
	Long: `Overlap HiFi reads against a SeedDB

The SeedDB (<prefix>.seeddb plus <prefix>.<fileID>.seeds) provides the
precomputed seeds; the FASTA file provides the bases for alignment.
Every sequence of the SeedDB is mapped against the whole set
(all-vs-all), unless queries are restricted with -n/--query-name.

Output is tab-delimited M4-like records:

  qname tname score identity qstart qend qlen tstrand tstart tend tlen

Positions are 0-based. tstrand is 1 when the query matched the reverse
complement of the target; tstart and tend are then positions on that
reverse complement, otherwise on the forward strand.

`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		seq.ValidateSeq = false

		outFile := getFlagString(cmd, "out-file")

		var fhLog *os.File
		if opt.Log2File {
			fhLog = addLog(opt.LogFile, opt.Verbose)
		}
		verbose := opt.Verbose
		outputLog := opt.Verbose || opt.Log2File

		timeStart := time.Now()
		defer func() {
			if outputLog {
				log.Infof("elapsed time: %s", time.Since(timeStart))
			}
			if opt.Log2File {
				fhLog.Close()
			}
		}()

		prefix := getFlagString(cmd, "seeddb")
		if prefix == "" {
			checkError(fmt.Errorf("flag -d/--seeddb needed"))
		}
		targetFile := getFlagString(cmd, "targets")
		if targetFile == "" {
			checkError(fmt.Errorf("flag -t/--targets needed"))
		}

		freqPercentile := getFlagNonNegativeFloat64(cmd, "freq-percentile")
		if freqPercentile > 1 {
			checkError(fmt.Errorf("the value of flag -f/--freq-percentile (%f) should be in range of [0, 1]", freqPercentile))
		}

		settings := &overlap.MapperSettings{
			MinQueryLen:  int32(getFlagNonNegativeInt(cmd, "min-qlen")),
			MinTargetLen: int32(getFlagNonNegativeInt(cmd, "min-tlen")),

			MinNumSeeds:    int32(getFlagPositiveInt(cmd, "min-num-seeds")),
			MinChainSpan:   int32(getFlagNonNegativeInt(cmd, "min-chain-span")),
			ChainBandwidth: int32(getFlagPositiveInt(cmd, "chain-bw")),

			AlignmentBandwidth: getFlagNonNegativeFloat64(cmd, "aln-bw"),
			AlignmentMaxD:      getFlagNonNegativeFloat64(cmd, "aln-diff-rate"),

			MinIdentity:     getFlagNonNegativeFloat64(cmd, "min-idt"),
			MinMappedLength: int32(getFlagNonNegativeInt(cmd, "min-map-len")),

			OneHitPerTarget:       getFlagBool(cmd, "one-hit-per-target"),
			SkipSelfHits:          !getFlagBool(cmd, "keep-self-hits"),
			SkipSymmetricOverlaps: getFlagBool(cmd, "skip-symmetric"),
		}

		queryNames := getFlagStringSlice(cmd, "query-name")

		// ---------------------------------------------------------------
		// loading the SeedDB

		if outputLog {
			log.Infof("pancake v%s", VERSION)
			log.Info()
			log.Infof("loading SeedDB index: %s%s", prefix, seeddb.IndexFileExt)
		}

		cache, err := seeddb.LoadIndexCacheFromFile(prefix + seeddb.IndexFileExt)
		checkError(err)

		reader := seeddb.NewReader(cache)
		defer func() {
			checkError(reader.Close())
		}()

		targetSeeds, err := reader.SeedsForAll()
		checkError(err)

		if outputLog {
			log.Infof("  %d sequences, %d blocks, %d seeds",
				len(cache.SeedsLines), len(cache.BlockLines), len(targetSeeds))
		}

		index := overlap.NewSeedIndex(cache, targetSeeds)

		stats, err := index.ComputeFrequencyStats(freqPercentile)
		checkError(err)

		var freqCutoff int64
		if freqPercentile > 0 {
			freqCutoff = stats.Cutoff
		}

		if outputLog {
			log.Infof("seed frequencies: max: %d, avg: %.2f, median: %.1f, cutoff: %d",
				stats.Max, stats.Avg, stats.Median, freqCutoff)
		}

		// ---------------------------------------------------------------
		// loading target bases

		if outputLog {
			log.Infof("loading target sequences: %s", targetFile)
		}

		header2id := cache.HeaderToOrdinal()
		targets := overlap.NewTargets(len(cache.SeedsLines))
		var nLoaded, nSkipped int

		fastxReader, err := fastx.NewReader(nil, targetFile, "")
		checkError(err)
		var record *fastx.Record
		for {
			record, err = fastxReader.Read()
			if err != nil {
				if err == io.EOF {
					break
				}
				checkError(err)
				break
			}

			id, ok := header2id[string(record.ID)]
			if !ok {
				nSkipped++
				continue
			}

			bases := make([]byte, len(record.Seq.Seq))
			copy(bases, bytes.ToUpper(record.Seq.Seq))
			targets.Set(&overlap.Sequence{
				ID:    id,
				Name:  string(record.ID),
				Bases: bases,
			})
			nLoaded++
		}
		fastxReader.Close()

		if outputLog {
			log.Infof("  %d sequences loaded, %d not in the SeedDB", nLoaded, nSkipped)
		}
		if nLoaded < len(cache.SeedsLines) {
			log.Warningf("%d sequences of the SeedDB have no bases in %s",
				len(cache.SeedsLines)-nLoaded, targetFile)
		}

		// ---------------------------------------------------------------
		// choosing queries

		queryIDs := make([]int32, 0, len(cache.SeedsLines))
		if len(queryNames) > 0 {
			for _, name := range queryNames {
				id, ok := header2id[name]
				if !ok {
					checkError(fmt.Errorf("query not found in the SeedDB: %s", name))
				}
				queryIDs = append(queryIDs, id)
			}
		} else {
			for i := range cache.SeedsLines {
				queryIDs = append(queryIDs, int32(i))
			}
		}

		// ---------------------------------------------------------------
		// mapping

		if outputLog {
			log.Infof("overlapping %d queries with %d threads...", len(queryIDs), opt.NumCPUs)
		}

		outfh, gw, w, err := outStream(outFile, strings.HasSuffix(outFile, ".gz"), opt.CompressionLevel)
		checkError(err)
		defer func() {
			outfh.Flush()
			if gw != nil {
				gw.Close()
			}
			w.Close()
		}()

		showProgressBar := len(queryIDs) > 1 && verbose
		var pbs *mpb.Progress
		var bar *mpb.Bar
		var chDuration chan time.Duration
		var doneDuration chan int
		if showProgressBar {
			pbs = mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
			bar = pbs.AddBar(int64(len(queryIDs)),
				mpb.PrependDecorators(
					decor.Name("mapped queries: ", decor.WC{W: len("mapped queries: "), C: decor.DindentRight}),
					decor.Name("", decor.WCSyncSpaceR),
					decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
				),
				mpb.AppendDecorators(
					decor.Name("ETA: ", decor.WC{W: len("ETA: ")}),
					decor.EwmaETA(decor.ET_STYLE_GO, 20),
					decor.OnComplete(decor.Name(""), ". done"),
				),
			)

			chDuration = make(chan time.Duration, opt.NumCPUs)
			doneDuration = make(chan int)
			go func() {
				for t := range chDuration {
					bar.EwmaIncrBy(1, t)
				}
				doneDuration <- 1
			}()
		}

		mapper := overlap.NewMapper(settings)

		type queryResult struct {
			query  *overlap.Sequence
			result *overlap.MapResult
		}

		var nQueries, nOverlaps uint64

		ch := make(chan *queryResult, opt.NumCPUs)
		done := make(chan int)
		go func() {
			for r := range ch {
				nQueries++
				for _, ovl := range r.result.Overlaps {
					tseq, err := targets.GetSequence(ovl.Bid)
					checkError(err)
					fmt.Fprintf(outfh, "%s\t%s\t%.0f\t%.4f\t%d\t%d\t%d\t%d\t%d\t%d\t%d\n",
						r.query.Name, tseq.Name, ovl.Score, ovl.Identity,
						ovl.Astart, ovl.Aend, ovl.Alen,
						boolToStrand(ovl.Brev), ovl.Bstart, ovl.Bend, ovl.Blen)
					nOverlaps++
				}
				outfh.Flush()
			}
			done <- 1
		}()

		var wg sync.WaitGroup
		tokens := make(chan int, opt.NumCPUs)

		for _, qid := range queryIDs {
			query, err := targets.GetSequence(qid)
			if err != nil { // no bases for this sequence
				if showProgressBar {
					chDuration <- 0
				}
				continue
			}

			// seed files are read serially, mapping runs in parallel
			querySeeds, err := reader.SeedsForSequence(qid)
			checkError(err)

			tokens <- 1
			wg.Add(1)
			go func(query *overlap.Sequence, querySeeds []seeddb.Seed) {
				defer func() {
					<-tokens
					wg.Done()
				}()
				t := time.Now()

				result, err := mapper.Map(targets, index, query, querySeeds, freqCutoff)
				checkError(err)

				ch <- &queryResult{query: query, result: result}

				if showProgressBar {
					chDuration <- time.Since(t)
				}
			}(query, querySeeds)
		}
		wg.Wait()
		close(ch)
		<-done

		if showProgressBar {
			close(chDuration)
			<-doneDuration
			pbs.Wait()
		}

		if outputLog {
			log.Infof("%d queries mapped, %d overlaps found", nQueries, nOverlaps)
			if !isStdin(outFile) {
				log.Infof("overlaps saved to: %s", outFile)
			}
		}
	},
}

func boolToStrand(rev bool) int {
	if rev {
		return 1
	}
	return 0
}

func init() {
	RootCmd.AddCommand(overlapCmd)

	overlapCmd.Flags().StringP("seeddb", "d", "",
		formatFlagUsage(`Prefix of the SeedDB files (<prefix>.seeddb, <prefix>.<fileID>.seeds).`))
	overlapCmd.Flags().StringP("targets", "t", "",
		formatFlagUsage(`FASTA file with the bases of the indexed sequences.`))
	overlapCmd.Flags().StringP("out-file", "o", "-",
		formatFlagUsage(`Out file, supports a ".gz" suffix ("-" for stdout).`))
	overlapCmd.Flags().StringSliceP("query-name", "n", []string{},
		formatFlagUsage(`Only map the given sequence(s), by header.`))

	overlapCmd.Flags().Float64P("freq-percentile", "f", 0.0002,
		formatFlagUsage(`Filter out seeds with frequency above this percentile (0 to disable).`))

	overlapCmd.Flags().IntP("min-qlen", "", 50,
		formatFlagUsage(`Ignore queries shorter than this.`))
	overlapCmd.Flags().IntP("min-tlen", "", 50,
		formatFlagUsage(`Discard overlaps on targets shorter than this.`))
	overlapCmd.Flags().IntP("min-num-seeds", "", 3,
		formatFlagUsage(`Minimum number of seeds in a chain.`))
	overlapCmd.Flags().IntP("min-chain-span", "", 1000,
		formatFlagUsage(`Minimum span, in both sequences, of a chain.`))
	overlapCmd.Flags().IntP("chain-bw", "", 100,
		formatFlagUsage(`Diagonal bandwidth of chaining.`))
	overlapCmd.Flags().Float64P("aln-bw", "", 0.01,
		formatFlagUsage(`Bandwidth of banded alignment, as a fraction of the shorter sequence.`))
	overlapCmd.Flags().Float64P("aln-diff-rate", "", 0.03,
		formatFlagUsage(`Difference budget of banded alignment, as a fraction of the query length.`))
	overlapCmd.Flags().Float64P("min-idt", "", 98.0,
		formatFlagUsage(`Minimum percent identity of an overlap.`))
	overlapCmd.Flags().IntP("min-map-len", "", 1000,
		formatFlagUsage(`Minimum mapped span, in both sequences, of an overlap.`))

	overlapCmd.Flags().BoolP("one-hit-per-target", "", false,
		formatFlagUsage(`Keep only the longest overlap per query-target pair (tandem repeats).`))
	overlapCmd.Flags().BoolP("keep-self-hits", "", false,
		formatFlagUsage(`Keep overlaps of a sequence with itself.`))
	overlapCmd.Flags().BoolP("skip-symmetric", "", false,
		formatFlagUsage(`Emit only one direction of each overlap pair (Bid < Aid).`))

	overlapCmd.SetUsageTemplate(usageTemplate("-d <seeddb prefix> -t <targets.fasta> [-o overlaps.m4]"))
}
