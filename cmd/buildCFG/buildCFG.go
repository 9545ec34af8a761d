package buildCFG

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
)

type ServerConfig struct {
	Port string
}

type RabbitConfig struct {
	Url              string
	Exchange         string
	Queue            string
	MaxAttempts      int
	RetryBaseSeconds int
}

type MailConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	InternalTo string
}

type PDFConfig struct {
	InvitationPath string
	RenderTimeout  time.Duration
}

type UploadConfig struct {
	MaxPhotoBytes int64
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) ServerConfig {
	port := cfg.GetString("server.port")
	if port == "" {
		port = "8080"
		log.Warn().Msg("server.port not set, defaulting to 8080")
	}
	return ServerConfig{Port: port}
}

func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	host := cfg.GetString("db.host")
	user := cfg.GetString("db.user")
	name := cfg.GetString("db.name")
	if host == "" || user == "" || name == "" {
		return "", nil, nil, fmt.Errorf("db.host, db.user and db.name are required")
	}

	port := cfg.GetInt("db.port")
	if port == 0 {
		port = 5432
	}
	sslmode := cfg.GetString("db.sslmode")
	if sslmode == "" {
		sslmode = "disable"
	}

	masterDSN := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, cfg.GetString("db.password"), name, sslmode,
	)

	opts := &dbpg.Options{
		MaxOpenConns: cfg.GetInt("db.max_open_conns"),
		MaxIdleConns: cfg.GetInt("db.max_idle_conns"),
	}
	log.Info().Str("host", host).Int("port", port).Str("dbname", name).Msg("DB config built")
	return masterDSN, nil, opts, nil
}

func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (RabbitConfig, error) {
	rc := RabbitConfig{
		Url:              cfg.GetString("rabbit.url"),
		Exchange:         cfg.GetString("rabbit.exchange"),
		Queue:            cfg.GetString("rabbit.queue"),
		MaxAttempts:      cfg.GetInt("rabbit.max_attempts"),
		RetryBaseSeconds: cfg.GetInt("rabbit.retry_base_seconds"),
	}
	if rc.Url == "" {
		return rc, fmt.Errorf("rabbit.url is required")
	}
	if rc.Exchange == "" {
		rc.Exchange = "registration.delayed"
	}
	if rc.Queue == "" {
		rc.Queue = "registration.created"
	}
	if rc.MaxAttempts <= 0 {
		rc.MaxAttempts = 5
	}
	if rc.RetryBaseSeconds <= 0 {
		rc.RetryBaseSeconds = 30
	}
	log.Info().Str("exchange", rc.Exchange).Str("queue", rc.Queue).Msg("Rabbit config built")
	return rc, nil
}

func BuildMailConfig(cfg *config.Config, log *zerolog.Logger) (MailConfig, error) {
	mc := MailConfig{
		Host:       cfg.GetString("mail.host"),
		Port:       cfg.GetInt("mail.port"),
		Username:   cfg.GetString("mail.username"),
		Password:   cfg.GetString("mail.password"),
		From:       cfg.GetString("mail.from"),
		InternalTo: cfg.GetString("mail.internal_to"),
	}
	if mc.Host == "" {
		return mc, fmt.Errorf("mail.host is required")
	}
	if mc.Port == 0 {
		mc.Port = 587
	}
	if mc.From == "" {
		mc.From = mc.Username
	}
	if mc.InternalTo == "" {
		log.Warn().Msg("mail.internal_to not set, internal notification mails disabled")
	}
	return mc, nil
}

func BuildPDFConfig(cfg *config.Config) PDFConfig {
	timeout := cfg.GetInt("pdf.render_timeout_seconds")
	if timeout <= 0 {
		timeout = 60
	}
	return PDFConfig{
		InvitationPath: cfg.GetString("pdf.invitation_path"),
		RenderTimeout:  time.Duration(timeout) * time.Second,
	}
}

func BuildUploadConfig(cfg *config.Config) UploadConfig {
	maxBytes := int64(cfg.GetInt("upload.max_photo_bytes"))
	if maxBytes <= 0 {
		maxBytes = 5 << 20
	}
	return UploadConfig{MaxPhotoBytes: maxBytes}
}
