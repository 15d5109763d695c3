package camera

// Preset names for common configurations
const (
	PresetDefault  = "default"
	PresetLowLight = "lowlight"
	PresetBright   = "bright"
	PresetFast     = "fast"
	PresetQuality  = "quality"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault:  DefaultConfig(),
		PresetLowLight: LowLightConfig(),
		PresetBright:   BrightConfig(),
		PresetFast:     FastConfig(),
		PresetQuality:  QualityConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetLowLight,
		PresetBright,
		PresetFast,
		PresetQuality,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	presets := Presets()
	if cfg, ok := presets[name]; ok {
		return &cfg
	}
	return nil
}

// LowLightConfig returns configuration for dim scenes.
// Long exposure with moderate gain.
func LowLightConfig() Config {
	cfg := DefaultConfig()
	cfg.ExposureTimeUs = 100_000
	cfg.GainDB = 12
	return cfg
}

// BrightConfig returns configuration for bright scenes.
// Short exposure, no gain, to avoid saturating the sensor.
func BrightConfig() Config {
	cfg := DefaultConfig()
	cfg.ExposureTimeUs = 1_000
	cfg.GainDB = 0
	return cfg
}

// FastConfig returns configuration for high frame rates.
// Short exposure and a deeper queue so bursts are not dropped.
func FastConfig() Config {
	cfg := DefaultConfig()
	cfg.ExposureTimeUs = 2_000
	cfg.QueueDepth = 8
	cfg.BufferCount = 4
	cfg.Quality = 70
	return cfg
}

// QualityConfig returns configuration for maximum image quality.
func QualityConfig() Config {
	cfg := DefaultConfig()
	cfg.ExposureTimeUs = 20_000
	cfg.Quality = 95
	return cfg
}
