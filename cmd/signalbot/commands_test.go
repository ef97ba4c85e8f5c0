package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"equity-signalbot/internal/bot"
	"equity-signalbot/internal/model"
	"equity-signalbot/internal/strategy"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	want := []string{"run", "signals", "export", "orders", "relist", "status", "version"}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered (err=%v)", name, err)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("missing --config flag")
	}
}

func TestVersionCmd(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "signalbot ") {
		t.Errorf("output = %q", out.String())
	}
}

func TestExportCmd_RequiresSymbol(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"export"})
	if err := root.Execute(); err == nil {
		t.Fatal("expected error without SYMBOL")
	}
}

func TestPrintReport(t *testing.T) {
	req := model.OrderRequest{Symbol: "ACME", Qty: 9, Side: model.SideBuy, RefPrice: decimal.NewFromInt(102)}
	rep := bot.CycleReport{
		CycleID: "cycle-test",
		Account: model.AccountState{Cash: decimal.NewFromInt(1000)},
		Results: []bot.SymbolResult{
			{
				Symbol:       "ACME",
				Source:       "alpaca",
				Stage:        bot.StageDone,
				Decision:     strategy.Decision{Symbol: "ACME", Signal: strategy.SignalBuy},
				Order:        &req,
				Confirmation: &model.OrderConfirmation{OrderID: "abc", Status: "accepted"},
			},
			{Symbol: "DEAD", Stage: bot.StageFetch, Err: errors.New("symbol delisted or inactive")},
		},
	}

	var out bytes.Buffer
	printReport(&out, rep)
	s := out.String()
	for _, want := range []string{"buy 9 @102.00", "abc accepted", "DEAD", "symbol delisted", "1 orders, 1 failures", "cash 1000.00"} {
		if !strings.Contains(s, want) {
			t.Errorf("report missing %q:\n%s", want, s)
		}
	}
}
