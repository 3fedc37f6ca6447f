package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Exam struct {
		Addr            string `yaml:"addr"`
		Duration        string `yaml:"duration"`
		AnswerGrace     string `yaml:"answer_grace"`
		LivenessPeriod  string `yaml:"liveness_period"`
		TeacherUsername string `yaml:"teacher_username"`
		TeacherPassword string `yaml:"teacher_password"`
		StudentPassword string `yaml:"student_password"`
	} `yaml:"exam"`
	Chat struct {
		Addr           string `yaml:"addr"`
		OutboundBuffer int    `yaml:"outbound_buffer"`
	} `yaml:"chat"`
	Notify struct {
		RegistrationAddr   string `yaml:"registration_addr"`
		ControlAddr        string `yaml:"control_addr"`
		ControlTarget      string `yaml:"control_target"`
		ClientRegisterAddr string `yaml:"client_register_addr"`
		ClientPort         int    `yaml:"client_port"`
		RetryDelay         string `yaml:"retry_delay"`
		SystemTimeInterval string `yaml:"system_time_interval"`
		BroadcastAddr      string `yaml:"broadcast_addr"`
	} `yaml:"notify"`
	Poll struct {
		ListenPort   int    `yaml:"listen_port"`
		ResponseAddr string `yaml:"response_addr"`
	} `yaml:"poll"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		ID  string `yaml:"id"`
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
}

// Default returns the configuration used when a value is absent from the file.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Exam.Addr = ":5000"
	cfg.Exam.Duration = "300s"
	cfg.Exam.AnswerGrace = "30s"
	cfg.Exam.LivenessPeriod = "5s"
	cfg.Exam.TeacherUsername = "admin"
	cfg.Exam.TeacherPassword = "123"
	cfg.Exam.StudentPassword = "student"
	cfg.Chat.Addr = ":5001"
	cfg.Chat.OutboundBuffer = 256
	cfg.Notify.RegistrationAddr = ":5010"
	cfg.Notify.ControlAddr = ":5020"
	cfg.Notify.ControlTarget = "127.0.0.1:5020"
	cfg.Notify.ClientRegisterAddr = ":5012"
	cfg.Notify.ClientPort = 5003
	cfg.Notify.RetryDelay = "1s"
	cfg.Poll.ListenPort = 5006
	cfg.Poll.ResponseAddr = ":5005"
	cfg.Quiz.ID = "java-basics"
	return cfg
}

// Load reads YAML config from path on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration parses a duration string or returns the fallback if empty or invalid.
func Duration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
