// Command signalbot runs the RSI/MACD momentum cycle over a watch-list of
// US equities and routes the resulting orders to Alpaca or a paper simulator.
package main

import (
	"log"
	"os"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
