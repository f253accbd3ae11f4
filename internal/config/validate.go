package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateTranslation(); err != nil {
		return err
	}
	if err := c.validateContentSync(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/chorus/config.toml"
		}
		return fmt.Errorf("llm.api_key is required. Set OPENROUTER_API_KEY env var or edit %s (create with 'chorus config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateTTS() error {
	if c.TTS.ElevenLabs.APIKey == "" {
		return errors.New("tts.elevenlabs.api_key is required. Set ELEVENLABS_API_KEY env var or edit the config file")
	}
	if c.TTS.Cartesia.APIKey == "" {
		return errors.New("tts.cartesia.api_key is required. Set CARTESIA_API_KEY env var or edit the config file")
	}
	if c.TTS.ElevenLabs.Stability < 0 || c.TTS.ElevenLabs.Stability > 1 {
		return errors.New("tts.elevenlabs.stability must be between 0 and 1")
	}
	if c.TTS.ElevenLabs.Similarity < 0 || c.TTS.ElevenLabs.Similarity > 1 {
		return errors.New("tts.elevenlabs.similarity must be between 0 and 1")
	}
	return nil
}

func (c *Config) validateStorage() error {
	if strings.TrimSpace(c.Storage.BaseURL) == "" {
		return errors.New("storage.base_url must be set")
	}
	if strings.TrimSpace(c.Storage.Bucket) == "" {
		return errors.New("storage.bucket must be set")
	}
	return nil
}

func (c *Config) validateTranslation() error {
	if len(c.Translation.SupportedLanguages) == 0 {
		return errors.New("translation.supported_languages must list at least one language")
	}
	return nil
}

func (c *Config) validateContentSync() error {
	if !c.ContentSync.Enabled {
		return nil
	}
	if strings.TrimSpace(c.ContentSync.BaseURL) == "" {
		return errors.New("content_sync.base_url must be set when content_sync.enabled is true")
	}
	return nil
}
