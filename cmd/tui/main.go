package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"pairwatch/internal/config"
)

func main() {
	configPath := flag.String("config", "configs/pairwatch.yaml", "config file to edit")
	flag.Parse()

	reader := bufio.NewReader(os.Stdin)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	for {
		fmt.Println("\n=== Pairwatch Control ===")
		fmt.Println("1) Show configuration summary")
		fmt.Println("2) Edit instruments")
		fmt.Println("3) Edit thresholds")
		fmt.Println("4) Save config")
		fmt.Println("5) Launch monitor")
		fmt.Println("6) Reload config from disk")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		switch strings.TrimSpace(input) {
		case "1":
			printSummary(cfg)
		case "2":
			editInstruments(reader, cfg)
		case "3":
			editThresholds(reader, cfg)
		case "4":
			if err := saveConfig(*configPath, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "5":
			launchMonitor(reader, *configPath)
		case "6":
			reloaded, err := loadConfig(*configPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "reload failed: %v\n", err)
			} else {
				cfg = reloaded
				fmt.Println("config reloaded")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printSummary(cfg *config.Config) {
	fmt.Println("\n--- Configuration Summary ---")
	fmt.Printf("Provider: %s\n", cfg.Exchange.Provider)
	fmt.Printf("Leader -> follower: %s -> %s\n", cfg.Exchange.Leader, cfg.Exchange.Follower)
	fmt.Printf("Window size: %d ticks\n", cfg.Monitor.WindowSize)
	fmt.Printf("Correlation border: %.2f\n", cfg.Monitor.BorderValue)
	fmt.Printf("Price change: > %.2f%% over %s\n", cfg.Monitor.PriceChangePercent, cfg.Monitor.PriceChangeTime())
	fmt.Printf("Clock: %s | queue size: %d\n", cfg.Monitor.Clock, cfg.Monitor.QueueSize)
	if cfg.Alerts.JSONLPath != "" {
		fmt.Printf("JSONL alerts: %s\n", cfg.Alerts.JSONLPath)
	}
	if cfg.Alerts.RedisAddr != "" {
		fmt.Printf("Redis alerts: %s (%s)\n", cfg.Alerts.RedisAddr, cfg.Alerts.RedisChannel)
	}
}

func editInstruments(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Instruments ---")
	cfg.Exchange.Provider = promptString(reader, "Provider (binance|stub)", cfg.Exchange.Provider)
	cfg.Exchange.Leader = strings.ToUpper(promptString(reader, "Leader symbol", cfg.Exchange.Leader))
	cfg.Exchange.Follower = strings.ToUpper(promptString(reader, "Follower symbol", cfg.Exchange.Follower))
	reportInvalid(cfg)
}

func editThresholds(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println("\n--- Edit Thresholds ---")
	cfg.Monitor.WindowSize = int(promptFloat(reader, "Window size (ticks)", float64(cfg.Monitor.WindowSize)))
	cfg.Monitor.BorderValue = promptFloat(reader, "Correlation border", cfg.Monitor.BorderValue)
	cfg.Monitor.PriceChangeSecs = int(promptFloat(reader, "Price change horizon (sec)", float64(cfg.Monitor.PriceChangeSecs)))
	cfg.Monitor.PriceChangePercent = promptFloat(reader, "Price change percent", cfg.Monitor.PriceChangePercent)
	reportInvalid(cfg)
}

func reportInvalid(cfg *config.Config) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		fmt.Printf("warning: %v (fix before saving)\n", err)
	}
}

func launchMonitor(reader *bufio.Reader, configPath string) {
	fmt.Println("Launching monitor (Ctrl+C to stop)...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "run", "./cmd/pairwatch", "-config", configPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start monitor: %v\n", err)
		return
	}

	go func() {
		_ = cmd.Wait()
		cancel()
	}()

	fmt.Print("\nPress ENTER to stop the monitor and return to menu...")
	_, _ = reader.ReadString('\n')
	cancel()
	time.Sleep(500 * time.Millisecond)
}

func promptString(reader *bufio.Reader, label, current string) string {
	fmt.Printf("%s [%s]: ", label, current)
	line, _ := reader.ReadString('\n')
	if line = strings.TrimSpace(line); line == "" {
		return current
	}
	return line
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%.2f]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %.2f\n", current)
		return current
	}
	return val
}

// loadConfig starts from defaults when the file does not exist yet.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Load("")
	}
	return cfg, err
}

func saveConfig(path string, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	return config.Save(path, cfg)
}
