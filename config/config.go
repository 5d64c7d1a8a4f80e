package config

import (
	"fmt"
	"time"
)

// BaseConfig is the application configuration tree. Values are loaded
// from config files and environment by the go-config container; every
// getter falls back to a sane development default so an empty config
// still boots.
type BaseConfig struct {
	Server      Server      `json:"server" yaml:"server"`
	Auth        Auth        `json:"auth" yaml:"auth"`
	Persistence Persistence `json:"persistence" yaml:"persistence"`
	Uploads     Uploads     `json:"uploads" yaml:"uploads"`
	GST         GST         `json:"gst" yaml:"gst"`
}

func (a *BaseConfig) Validate() error {
	return nil
}

func (a *BaseConfig) GetServer() Server           { return a.Server }
func (a *BaseConfig) GetAuth() Auth               { return a.Auth }
func (a *BaseConfig) GetPersistence() Persistence { return a.Persistence }
func (a *BaseConfig) GetUploads() Uploads         { return a.Uploads }
func (a *BaseConfig) GetGST() GST                 { return a.GST }

type Server struct {
	Addr       string `json:"addr" yaml:"addr"`
	Production bool   `json:"production" yaml:"production"`
}

func (s Server) GetAddr() string {
	if s.Addr == "" {
		return ":5000"
	}
	return s.Addr
}

func (s Server) IsProduction() bool {
	return s.Production
}

type Auth struct {
	SigningKey    string `json:"signing_key" yaml:"signing_key"`
	SessionCookie string `json:"session_cookie" yaml:"session_cookie"`
	SessionDays   int    `json:"session_days" yaml:"session_days"`
	Issuer        string `json:"issuer" yaml:"issuer"`
	SecureCookies bool   `json:"secure_cookies" yaml:"secure_cookies"`
}

func (a Auth) GetSigningKey() string {
	if a.SigningKey == "" {
		return "mudra-desk-secret-key-change-in-production"
	}
	return a.SigningKey
}

func (a Auth) GetSessionCookie() string {
	if a.SessionCookie == "" {
		return "mudra_session"
	}
	return a.SessionCookie
}

func (a Auth) GetSessionDays() int {
	if a.SessionDays <= 0 {
		return 36500
	}
	return a.SessionDays
}

func (a Auth) GetIssuer() string {
	if a.Issuer == "" {
		return "mudradesk"
	}
	return a.Issuer
}

func (a Auth) GetSecureCookies() bool {
	return a.SecureCookies
}

type Persistence struct {
	DSN                   string `json:"dsn" yaml:"dsn"`
	Driver                string `json:"driver" yaml:"driver"`
	Debug                 bool   `json:"debug" yaml:"debug"`
	OtelIdentifier        string `json:"otel_identifier" yaml:"otel_identifier"`
	PingTimeoutExpression string `json:"ping_timeout" yaml:"ping_timeout"`
}

func (p Persistence) GetDSN() string {
	if p.DSN == "" {
		return "file:mudradesk.db?cache=shared"
	}
	return p.DSN
}

func (p Persistence) GetDriver() string {
	if p.Driver == "" {
		return "sqlite"
	}
	return p.Driver
}

func (p Persistence) GetServer() string {
	return p.GetDSN()
}

func (p Persistence) GetDebug() bool {
	return p.Debug
}

func (p Persistence) GetOtelIdentifier() string {
	return p.OtelIdentifier
}

func (p Persistence) GetPingTimeout() time.Duration {
	expr := p.PingTimeoutExpression
	if expr == "" {
		expr = "5s"
	}
	dur, err := time.ParseDuration(expr)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", expr),
		)
	}
	return dur
}

type Uploads struct {
	Dir       string `json:"dir" yaml:"dir"`
	SharedDir string `json:"shared_dir" yaml:"shared_dir"`
	MaxBytes  int64  `json:"max_bytes" yaml:"max_bytes"`
}

func (u Uploads) GetDir() string {
	if u.Dir == "" {
		return "uploads"
	}
	return u.Dir
}

func (u Uploads) GetSharedDir() string {
	if u.SharedDir == "" {
		return "uploads/shared"
	}
	return u.SharedDir
}

func (u Uploads) GetMaxBytes() int64 {
	if u.MaxBytes <= 0 {
		return 16 << 20
	}
	return u.MaxBytes
}

type GST struct {
	BaseURL string `json:"base_url" yaml:"base_url"`
	APIKey  string `json:"api_key" yaml:"api_key"`
}

func (g GST) GetBaseURL() string { return g.BaseURL }
func (g GST) GetAPIKey() string  { return g.APIKey }
