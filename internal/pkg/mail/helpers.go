package mail

import (
	"github.com/himlearning/storyhub/internal/config"
)

// BuildMailConfig constructs a mail.Config from the application config.
func BuildMailConfig(cfg config.MailConfig) Config {
	mc := Config{
		Enable:  cfg.Enable,
		Host:    cfg.Host,
		Port:    cfg.Port,
		User:    cfg.User,
		Pass:    cfg.Pass,
		From:    cfg.From,
		ReplyTo: cfg.ReplyTo,
	}
	if cfg.UseResend || cfg.ResendKey != "" {
		mc.UseResend = true
		mc.ResendKey = cfg.ResendKey
	}
	return mc
}
