// Package config loads engine settings from environment variables, an
// optional YAML file and built-in defaults using Viper. Keys map to
// variables with the BUPPLE_ENGINE prefix, so openai.api_key is read from
// BUPPLE_ENGINE_OPENAI_API_KEY.
package config
