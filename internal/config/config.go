package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Exam struct {
		// Seed fixes the question sampler; zero seeds from the clock.
		Seed            int64  `yaml:"seed"`
		QuestionTTL     string `yaml:"question_ttl"`
		FinalizeTimeout string `yaml:"finalize_timeout"`
	} `yaml:"exam"`
	Auth struct {
		Secret   string `yaml:"secret"`
		TokenTTL string `yaml:"token_ttl"`
	} `yaml:"auth"`
	Billing struct {
		ProcessingDelay string `yaml:"processing_delay"`
	} `yaml:"billing"`
	Mail struct {
		SendgridKey  string `yaml:"sendgrid_key"`
		SendgridHost string `yaml:"sendgrid_host"`
		FromName     string `yaml:"from_name"`
		FromEmail    string `yaml:"from_email"`
		SchoolInbox  string `yaml:"school_inbox"`
	} `yaml:"mail"`
	FTP struct {
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		BaseURL  string `yaml:"base_url"`
	} `yaml:"ftp"`
	School struct {
		Timezone string `yaml:"timezone"`
	} `yaml:"school"`
}

// Load reads YAML config from path after loading an optional .env file next to the
// working directory. ${VAR} references in the file are expanded from the environment.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Location resolves the school timezone, defaulting to local time.
func (c Config) Location() *time.Location {
	if c.School.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.School.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
