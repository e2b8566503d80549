package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Policy holds operator-tunable settings that may change without a restart.
type Policy struct {
	Certificate CertificatePolicy `mapstructure:"certificate"`
}

type CertificatePolicy struct {
	DownloadLinkTTL time.Duration `mapstructure:"downloadLinkTTL"`
	EmailLinkTTL    time.Duration `mapstructure:"emailLinkTTL"`
}

func DefaultPolicy() Policy {
	return Policy{
		Certificate: CertificatePolicy{
			DownloadLinkTTL: time.Hour,
			EmailLinkTTL:    365 * 24 * time.Hour,
		},
	}
}

type PolicyHolder struct {
	current atomic.Value // holds Policy
}

// NewStaticPolicyHolder returns a holder that never reloads.
func NewStaticPolicyHolder(p Policy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(p)
	return holder
}

func NewPolicyHolder() (*PolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("policy")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/academy")
	v.AddConfigPath(".")

	v.SetEnvPrefix("ACADEMY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPolicy()
	v.SetDefault("certificate.downloadLinkTTL", defaults.Certificate.DownloadLinkTTL)
	v.SetDefault("certificate.emailLinkTTL", defaults.Certificate.EmailLinkTTL)

	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileLoaded = false
	}

	var p Policy
	if err := v.Unmarshal(&p); err != nil {
		return nil, err
	}
	if err := validatePolicy(p); err != nil {
		return nil, err
	}

	holder := NewStaticPolicyHolder(p)
	if !fileLoaded {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated Policy
		if err := v.Unmarshal(&updated); err != nil {
			log.Printf("[policy] reload failed: %v", err)
			return
		}
		if err := validatePolicy(updated); err != nil {
			log.Printf("[policy] invalid policy ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *PolicyHolder) Get() Policy {
	if h == nil {
		return DefaultPolicy()
	}
	return h.current.Load().(Policy)
}

func validatePolicy(p Policy) error {
	if p.Certificate.DownloadLinkTTL <= 0 {
		return errors.New("certificate.downloadLinkTTL must be positive")
	}
	if p.Certificate.EmailLinkTTL < p.Certificate.DownloadLinkTTL {
		return errors.New("certificate.emailLinkTTL must not be shorter than downloadLinkTTL")
	}
	return nil
}
