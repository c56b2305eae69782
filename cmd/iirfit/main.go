// Command iirfit fits an IIR filter to the simulated frequency response of a
// damped second order measurement system and prints the resulting
// coefficients together with fit diagnostics.
//
// Usage:
//
//	iirfit [flags]
//
// Examples:
//
//	iirfit
//	iirfit -nb 6 -na 6 -points 50
//	iirfit -inv -fmax 120e3 -fs 1e6
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/cwbudde/algo-unc/fit"
	"github.com/cwbudde/algo-unc/sos"
)

func main() {
	s0 := flag.Float64("s0", 0.124, "static gain of the second order system")
	delta := flag.Float64("delta", 0.0055, "damping coefficient")
	f0 := flag.Float64("f0", 36e3, "resonance frequency in Hz")
	fs := flag.Float64("fs", 500e3, "sampling frequency of the digital filter in Hz")
	nb := flag.Int("nb", 4, "numerator order")
	na := flag.Int("na", 4, "denominator order")
	points := flag.Int("points", 30, "number of frequency response samples")
	fmax := flag.Float64("fmax", 80e3, "upper bound of the frequency grid in Hz")
	inv := flag.Bool("inv", false, "fit the reciprocal response (deconvolution filter)")
	verbose := flag.Bool("v", false, "print fit diagnostics while running")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: iirfit [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Fits an IIR filter to a simulated second order system response.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *points < 2 {
		fmt.Fprintf(os.Stderr, "error: -points must be at least 2\n")
		os.Exit(1)
	}

	f := make([]float64, *points)
	for i := range f {
		f[i] = *fmax * float64(i) / float64(*points-1)
	}
	h := sos.FreqResp(*s0, *delta, *f0, f)

	opts := []fit.Option{}
	if *inv {
		opts = append(opts, fit.WithReciprocal())
	}
	if *verbose {
		opts = append(opts, fit.WithVerbose(os.Stderr))
	}

	res, err := fit.LSIIR(h, *nb, *na, f, *fs, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	printResult(res)
	if !res.Stable {
		fmt.Fprintf(os.Stderr, "warning: the fitted filter is not stable; consider a larger delay or order\n")
	}
}

func printResult(res *fit.IIRResult) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "k\tb[k]\ta[k]\n")
	fmt.Fprintf(tw, "-\t----\t----\n")
	for i := range max(len(res.B), len(res.A)) {
		b, a := "", ""
		if i < len(res.B) {
			b = fmt.Sprintf("%.8g", res.B[i])
		}
		if i < len(res.A) {
			a = fmt.Sprintf("%.8g", res.A[i])
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", i, b, a)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
		return
	}

	fmt.Printf("\ntau        = %d samples\n", res.Tau)
	fmt.Printf("stable     = %t\n", res.Stable)
	fmt.Printf("iterations = %d\n", res.Iterations)
	fmt.Printf("rms error  = %.6g\n", res.RMSError)
}
