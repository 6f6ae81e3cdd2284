package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"engrave-queue/internal/catalog"
	"engrave-queue/internal/common/logger"
)

type DB struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Pass     string `yaml:"password"`
	Name     string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
}

type MQ struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	User  string `yaml:"user"`
	Pass  string `yaml:"password"`
	VHost string `yaml:"vhost"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type HTTP struct {
	OrderPort        int `yaml:"order_port"`
	NotificationPort int `yaml:"notification_port"`
}

type Queue struct {
	AdminEmail       string        `yaml:"admin_email"`
	RequireEngraving bool          `yaml:"require_engraving"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
}

// Push configures the device push gateway. An empty WebhookURL logs pushes instead.
type Push struct {
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

type Log struct {
	Level string `yaml:"level"`
}

type App struct {
	Log      Log                                 `yaml:"log"`
	Database DB                                  `yaml:"database"`
	Rabbit   MQ                                  `yaml:"rabbitmq"`
	Kafka    Kafka                               `yaml:"kafka"`
	HTTP     HTTP                                `yaml:"http"`
	Queue    Queue                               `yaml:"queue"`
	Push     Push                                `yaml:"push"`
	Catalog  map[string]map[string]catalog.Entry `yaml:"catalog"`
}

func defaults() App {
	return App{
		Log:      Log{Level: "info"},
		Database: DB{Port: 5432, SSLMode: "disable", MaxConns: 10},
		Rabbit:   MQ{Port: 5672, VHost: "/"},
		Kafka:    Kafka{Topic: "engrave.orders"},
		HTTP:     HTTP{OrderPort: 3000, NotificationPort: 3003},
		Queue: Queue{
			AdminEmail:       "admin@engravequeue.com",
			RequireEngraving: true,
			WriteTimeout:     10 * time.Second,
		},
		Push: Push{Timeout: 5 * time.Second},
	}
}

// Load reads the YAML file over the defaults, then applies env overrides for secrets.
func Load(path string) (App, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return App{}, err
	}
	return Parse(b)
}

func Parse(b []byte) (App, error) {
	a := defaults()
	if err := yaml.Unmarshal(b, &a); err != nil {
		return App{}, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&a)

	if a.Database.Host == "" || a.Rabbit.Host == "" {
		return App{}, errors.New("invalid config: missing database/rabbitmq host")
	}
	if _, err := logger.ParseLevel(a.Log.Level); err != nil {
		return App{}, fmt.Errorf("invalid config: log.level: %w", err)
	}
	if a.Queue.WriteTimeout <= 0 {
		return App{}, errors.New("invalid config: queue.write_timeout must be positive")
	}
	return a, nil
}

// CatalogTable returns the configured catalog, or the shop default when none is set.
func (a App) CatalogTable() (*catalog.Catalog, error) {
	if len(a.Catalog) == 0 {
		return catalog.Default(), nil
	}
	return catalog.New(a.Catalog)
}

func (d DB) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s&pool_max_conns=%d",
		d.User, d.Pass, d.Host, d.Port, d.Name, d.SSLMode, d.MaxConns)
}

func applyEnv(a *App) {
	a.Database.Pass = getEnv("DB_PASSWORD", a.Database.Pass)
	a.Rabbit.Pass = getEnv("RABBITMQ_PASSWORD", a.Rabbit.Pass)
	a.Push.WebhookURL = getEnv("PUSH_WEBHOOK_URL", a.Push.WebhookURL)
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		a.Log.Level = v
	}
	if v := getEnv("KAFKA_BROKERS", ""); v != "" {
		a.Kafka.Brokers = nil
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				a.Kafka.Brokers = append(a.Kafka.Brokers, b)
			}
		}
	}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func FindConfig() (string, error) {
	candidates := []string{"config.yaml", "deploy/config.example.yaml"}
	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", fs.ErrNotExist
}
