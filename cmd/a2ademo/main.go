// Command a2ademo exercises the agent pool with concurrent A2A calls:
// weather + currency in parallel, multi-currency conversion, and a
// multi-city weather fan-out.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/nodus-labs/agentpool/internal/client"
)

func main() {
	baseURL := flag.String("base-url", "http://localhost:8000", "agent pool base URL")
	timeout := flag.Duration("timeout", 30*time.Second, "per-demo timeout")
	flag.Parse()

	if err := run(*baseURL, *timeout); err != nil {
		slog.Error("demo failed", "error", err)
		os.Exit(1)
	}
}

func run(baseURL string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	weather := client.New(baseURL + "/weather")
	currency := client.New(baseURL + "/currency")

	if err := parallelDemo(ctx, weather, currency); err != nil {
		return err
	}
	if err := multiCurrencyDemo(ctx, currency); err != nil {
		return err
	}
	return multiCityDemo(ctx, weather)
}

// parallelDemo fetches a forecast and an exchange rate concurrently.
func parallelDemo(ctx context.Context, weather, currency *client.Client) error {
	fmt.Println("== Parallel weather + currency ==")

	weatherCard, err := weather.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover weather: %w", err)
	}
	currencyCard, err := currency.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover currency: %w", err)
	}
	fmt.Printf("  - %s: %s\n", weatherCard.Name, weatherCard.Description)
	fmt.Printf("  - %s: %s\n", currencyCard.Name, currencyCard.Description)

	var weatherResult, currencyResult map[string]any
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		weatherResult, err = weather.Call(gctx, "get_forecast", map[string]any{
			"city": "barcelona",
			"days": 3,
		})
		return err
	})
	g.Go(func() error {
		var err error
		currencyResult, err = currency.Call(gctx, "convert", map[string]any{
			"from_currency": "EUR",
			"to_currency":   "USD",
			"amount":        100,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("parallel calls: %w", err)
	}

	fmt.Printf("both calls finished in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("weather: %v forecasts for %v\n", count(weatherResult["forecasts"]), weatherResult["city"])
	fmt.Printf("currency: %v %v = %.2f %v (rate %.4f)\n",
		currencyResult["amount"], currencyResult["from_currency"],
		toFloat(currencyResult["converted_amount"]), currencyResult["to_currency"],
		toFloat(currencyResult["rate"]))
	return nil
}

// multiCurrencyDemo converts one amount to several currencies in one call.
func multiCurrencyDemo(ctx context.Context, currency *client.Client) error {
	fmt.Println("== Multi-currency conversion ==")

	result, err := currency.Call(ctx, "convert_multiple", map[string]any{
		"from_currency": "EUR",
		"to_currencies": []string{"USD", "GBP", "JPY", "CHF"},
		"amount":        1000,
	})
	if err != nil {
		return fmt.Errorf("convert_multiple: %w", err)
	}

	fmt.Printf("converting %v %v:\n", result["amount"], result["from_currency"])
	conversions, _ := result["conversions"].([]any)
	for _, c := range conversions {
		conv, _ := c.(map[string]any)
		if msg, ok := conv["error"].(string); ok && msg != "" {
			fmt.Printf("  -> %v: %s\n", conv["to_currency"], msg)
			continue
		}
		fmt.Printf("  -> %.2f %v (rate %.4f)\n",
			toFloat(conv["converted_amount"]), conv["to_currency"], toFloat(conv["rate"]))
	}
	return nil
}

// multiCityDemo fans one forecast call out per city.
func multiCityDemo(ctx context.Context, weather *client.Client) error {
	fmt.Println("== Multi-city weather fan-out ==")

	cities := []string{"barcelona", "madrid", "valencia"}
	results := make([]map[string]any, len(cities))

	g, gctx := errgroup.WithContext(ctx)
	for i, city := range cities {
		g.Go(func() error {
			result, err := weather.Call(gctx, "get_forecast", map[string]any{"city": city, "days": 1})
			if err != nil {
				return fmt.Errorf("forecast %s: %w", city, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, result := range results {
		forecasts, _ := result["forecasts"].([]any)
		if len(forecasts) == 0 {
			continue
		}
		day, _ := forecasts[0].(map[string]any)
		fmt.Printf("  %v: %v, max %.1f°C, min %.1f°C\n",
			result["city"], day["condition"], toFloat(day["temp_max"]), toFloat(day["temp_min"]))
	}
	return nil
}

func toFloat(v any) float64 {
	f, _ := v.(float64)
	return f
}

func count(v any) int {
	items, _ := v.([]any)
	return len(items)
}
