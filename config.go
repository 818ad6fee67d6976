package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/Schidstorm/edge_config/apps/totp-display/pkg/totp"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

var config *configStruct

type configStruct struct {
	secret      string
	digits      int
	period      int
	algorithm   string
	uri         string
	logLevel    zerolog.Level
	interactive bool
	group       bool
}

func (c *configStruct) input() totp.Input {
	return totp.Input{
		Secret:    c.secret,
		Digits:    c.digits,
		Period:    c.period,
		Algorithm: c.algorithm,
	}
}

// getConfig reads TOTP_* variables and lets command line flags override them.
func getConfig() *configStruct {
	if config != nil {
		return config
	}

	c := &configStruct{}
	var logLevel string

	flags := pflag.NewFlagSet("totp-display", pflag.ExitOnError)
	flags.StringVar(&c.secret, "secret", os.Getenv("TOTP_SECRET"), "base32 shared secret")
	flags.IntVar(&c.digits, "digits", getenvInt("TOTP_DIGITS", totp.DefaultDigits), "number of digits (1-10)")
	flags.IntVar(&c.period, "period", getenvInt("TOTP_PERIOD", totp.DefaultPeriod), "period in seconds (1-3600)")
	flags.StringVar(&c.algorithm, "algorithm", getenvDefault("TOTP_ALGORITHM", totp.AlgorithmSHA1.String()), "SHA1, SHA256 or SHA512")
	flags.StringVar(&c.uri, "uri", os.Getenv("TOTP_URI"), "otpauth://totp/ URI, replaces secret, digits, period and algorithm")
	flags.StringVar(&logLevel, "log-level", getenvDefault("LOG_LEVEL", "info"), "zerolog level")
	flags.BoolVarP(&c.interactive, "interactive", "i", false, "read edits like \"digits 8\" from stdin")
	flags.BoolVar(&c.group, "group", true, "split the code into two groups")
	flags.Parse(os.Args[1:])

	level, err := zerolog.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid LOG_LEVEL")
	}
	c.logLevel = level

	config = c
	return config
}

// loadDotenv sets variables from a KEY=VALUE file if it exists.
func loadDotenv(path string) {
	dotenv, err := os.ReadFile(path)
	if err != nil {
		return
	}

	lines := strings.SplitSeq(string(dotenv), "\n")
	for line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			os.Setenv(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
		}
	}
}

func getenvDefault(name, def string) string {
	val := os.Getenv(name)
	if val == "" {
		return def
	}

	return val
}

func getenvInt(name string, def int) int {
	val := os.Getenv(name)
	if val == "" {
		return def
	}

	n, err := strconv.Atoi(val)
	if err != nil {
		log.Fatal().Err(err).Msgf("Invalid %s", name)
	}
	return n
}
