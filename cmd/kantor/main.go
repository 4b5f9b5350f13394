// Command kantor is a terminal front end for the conversion data path:
// it converts an amount between two currencies using fresh rates when
// the network is up and the cached snapshot when it is not, and can
// print the stored rate history for the pair
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/robswierczek/kantor"
	"github.com/robswierczek/kantor/internal/logging"
	"github.com/robswierczek/kantor/label"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const apiKeyEnv = "KANTOR_API_KEY"

var flagSet = flag.NewFlagSet("kantor", flag.ContinueOnError)

var (
	amount      = flagSet.Float64("amount", 1, "amount to convert")
	from        = flagSet.String("from", "USD", "source currency code")
	to          = flagSet.String("to", "EUR", "target currency code")
	swap        = flagSet.Bool("swap", false, "swap the source and target currencies")
	cacheFile   = flagSet.String("cache", kantor.DefaultCacheFile, "path to the offline rates cache file")
	historyFile = flagSet.String("history", kantor.DefaultHistoryFile, "path to the rates history file")
	historyDays = flagSet.Int("history-days", 0, "print the pair history over the last N days instead of converting")
	timeout     = flagSet.Duration("timeout", kantor.DefaultRequestTimeout, "per-request deadline")
	apiKey      = flagSet.String("api-key", "", "rate provider API key, defaults to $"+apiKeyEnv)
	listing     = flagSet.Bool("list", false, "list exchangeable currencies and exit")
)

func main() {
	ctx := logging.WithLogger(context.Background(), logging.NewLogger("Kantor: ", log.Lmsgprefix))
	logger := logging.FromContext(ctx)

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		logger.Fatalf("flag parse: %v", err)
	}

	key := *apiKey
	if key == "" {
		key = os.Getenv(apiKeyEnv)
	}

	e := kantor.New(
		http.DefaultClient,
		key,
		kantor.WithCacheFile(*cacheFile),
		kantor.WithHistoryFile(*historyFile),
		kantor.WithRequestTimeout(*timeout),
	)

	printer := message.NewPrinter(language.English)

	if *listing {
		for _, symbol := range e.GetExchangeable() {
			if ccy, ok := label.Currencies[symbol]; ok {
				printer.Printf("%s\t%s\n", ccy.Symbol, ccy.Name)
			} else {
				printer.Printf("%s\n", symbol)
			}
		}
		return
	}

	src, dst := label.Normalize(*from), label.Normalize(*to)
	if *swap {
		src, dst = dst, src
	}

	if *historyDays > 0 {
		printHistory(ctx, printer, e, src, dst, *historyDays)
		return
	}

	resp, err := e.Convert(ctx, kantor.ConvOpt{From: src, To: dst, Value: *amount})
	if err != nil {
		logger.Fatalf("convert: %v", err)
	}

	printer.Printf("%.2f %s = %.2f %s\n", resp.Value, resp.From, resp.Amount, resp.To)
	printer.Printf("rate 1 %s = %.4f %s\n", resp.From, resp.Rate, resp.To)
	fmt.Printf("according to the exchange rate from %s\n", resp.Date)
}

// printHistory writes one line per stored day with the pair rate, the
// raw material of the original chart view
func printHistory(ctx context.Context, printer *message.Printer, e kantor.Exchanger, from, to label.Symbol, days int) {
	logger := logging.FromContext(ctx)

	// backfill can mean one network request per chunk of days
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	series := e.EnsureHistory(ctx, days)
	if len(series) == 0 {
		logger.Fatalf("no history available for the last %d days", days)
	}

	for _, snap := range series {
		rate, err := kantor.ConvertAmount(1, from, to, snap.Rates)
		if err != nil {
			continue
		}
		printer.Printf("%s\t%.4f\n", snap.Date, rate)
	}
}
