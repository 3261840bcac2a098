package main

import (
	"bufio"
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

var (
	csvFile string
)

func main() {
	csvFilePtr := flag.String("csvFile", csvFile, "residual history written by gosnes solve --historyFile")
	flag.Parse()
	csvFile = *csvFilePtr
	if len(csvFile) == 0 {
		flag.Usage()
		os.Exit(1)
	}
	fmt.Printf("Input file: %v\n", csvFile)
	h, err := readHistory(csvFile)
	if err != nil {
		fmt.Printf("error: %v\n", err)
		os.Exit(1)
	}
	orders := h.Orders()
	fmt.Printf("iteration, fnorm, observed order\n")
	for i := range h.fnorm {
		if math.IsNaN(orders[i]) {
			fmt.Printf("%d, %v, -\n", h.iteration[i], h.fnorm[i])
			continue
		}
		fmt.Printf("%d, %v, %5.3f\n", h.iteration[i], h.fnorm[i], orders[i])
	}
}

type History struct {
	iteration []int
	fnorm     []float64
}

func (h *History) Add(iteration int, fnorm float64) {
	h.iteration = append(h.iteration, iteration)
	h.fnorm = append(h.fnorm, fnorm)
}

// Orders estimates the order of convergence at each iteration from three
// consecutive residual norms
//
//	q_k = log(f_(k+1)/f_k) / log(f_k/f_(k-1))
//
// Entries without a defined estimate are NaN.
func (h *History) Orders() (q []float64) {
	var (
		f = h.fnorm
	)
	q = make([]float64, len(f))
	for k := range q {
		q[k] = math.NaN()
		if k == 0 || k == len(f)-1 {
			continue
		}
		if f[k-1] <= 0 || f[k] <= 0 || f[k+1] <= 0 {
			continue
		}
		den := math.Log(f[k] / f[k-1])
		if den == 0 {
			continue
		}
		q[k] = math.Log(f[k+1]/f[k]) / den
	}
	return
}

func readHistory(csvFile string) (h *History, err error) {
	var (
		records [][]string
		f       *os.File
	)
	if f, err = os.Open(csvFile); err != nil {
		return
	}
	defer f.Close()
	r := csv.NewReader(bufio.NewReader(f))
	if records, err = r.ReadAll(); err != nil {
		return nil, errors.Wrapf(err, "reading %s", csvFile)
	}
	h = &History{}
	for i, rec := range records {
		if i == 0 {
			continue
		}
		if len(rec) < 2 {
			return nil, fmt.Errorf("line %d: expected iteration,fnorm, have %v", i+1, rec)
		}
		var (
			it    int
			fnorm float64
		)
		if it, err = strconv.Atoi(rec[0]); err != nil {
			return nil, errors.Wrapf(err, "line %d", i+1)
		}
		if fnorm, err = strconv.ParseFloat(rec[1], 64); err != nil {
			return nil, errors.Wrapf(err, "line %d", i+1)
		}
		h.Add(it, fnorm)
	}
	return
}
