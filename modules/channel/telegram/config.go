package telegram

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/flemzord/bootunpack/internal/channel"
)

// tokenPattern matches the Telegram bot token format: <digits>:<alphanum+dash>.
var tokenPattern = regexp.MustCompile(`^\d+:[A-Za-z0-9_-]+$`)

const (
	defaultAPIURL        = "https://api.telegram.org"
	defaultMaxLength     = 4096
	defaultPollTimeout   = 30
	defaultSendAttempts  = 3
	maxRetryAfterSeconds = 60
)

// Config holds the Telegram channel configuration.
type Config struct {
	Token            string   `yaml:"token"`
	PollingTimeout   int      `yaml:"polling_timeout"`
	AllowUsers       []string `yaml:"allow_users"`
	AllowGroups      []string `yaml:"allow_groups"`
	MaxMessageLength int      `yaml:"max_message_length"`
	APIURL           string   `yaml:"api_url"`
	SendAttempts     int      `yaml:"send_attempts"`

	// Debug turns on request logging inside the Bot API client.
	Debug bool `yaml:"debug"`
}

// defaults applies default values to unset fields.
func (c *Config) defaults() {
	if c.PollingTimeout == 0 {
		c.PollingTimeout = defaultPollTimeout
	}
	if c.MaxMessageLength == 0 {
		c.MaxMessageLength = defaultMaxLength
	}
	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}
	if c.SendAttempts == 0 {
		c.SendAttempts = defaultSendAttempts
	}
}

// validate checks configuration field constraints beyond basic presence checks.
// It is called from Telegram.Validate after defaults have been applied.
func (c *Config) validate() error {
	if c.Token != "" && !tokenPattern.MatchString(c.Token) {
		return fmt.Errorf("telegram: token format invalid (expected <bot_id>:<hash>)")
	}

	if c.APIURL != "" {
		u, err := url.Parse(c.APIURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("telegram: api_url must be a valid http/https URL, got %q", c.APIURL)
		}
	}

	if c.PollingTimeout < 0 || c.PollingTimeout > 50 {
		return fmt.Errorf("telegram: polling_timeout must be 0-50, got %d", c.PollingTimeout)
	}

	if c.MaxMessageLength < 1 || c.MaxMessageLength > defaultMaxLength {
		return fmt.Errorf("telegram: max_message_length must be 1-%d, got %d", defaultMaxLength, c.MaxMessageLength)
	}

	if c.SendAttempts < 1 || c.SendAttempts > 10 {
		return fmt.Errorf("telegram: send_attempts must be 1-10, got %d", c.SendAttempts)
	}

	return nil
}

// allowList returns nil, a public bot, when neither users nor groups are
// listed.
func (c *Config) allowList() *channel.AllowList {
	if len(c.AllowUsers) == 0 && len(c.AllowGroups) == 0 {
		return nil
	}
	return channel.NewAllowList(c.AllowUsers, c.AllowGroups)
}

// endpoint returns the Bot API endpoint format expected by tgbotapi.
func (c *Config) endpoint() string {
	return strings.TrimRight(c.APIURL, "/") + "/bot%s/%s"
}
