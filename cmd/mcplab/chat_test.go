package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateChatConfig(t *testing.T) {
	assert.NoError(t, validateChatConfig(NewChatConfig()))
	assert.NoError(t, validateChatConfig(&ChatConfig{N: 3}))
	assert.Error(t, validateChatConfig(&ChatConfig{N: 0}))
}

func TestValidateReactConfig(t *testing.T) {
	for _, mode := range []string{ReactModeOneShot, ReactModeSteps, ReactModeFunction} {
		assert.NoError(t, validateReactConfig(&ReactConfig{Mode: mode}), mode)
	}
	assert.Error(t, validateReactConfig(&ReactConfig{Mode: "chain"}))
}

func TestValidateFuncallConfig(t *testing.T) {
	assert.NoError(t, validateFuncallConfig(NewFuncallConfig()))
	assert.NoError(t, validateFuncallConfig(&FuncallConfig{Rounds: 2, Tools: []string{"multiply", "get_weather"}}))
	assert.Error(t, validateFuncallConfig(&FuncallConfig{Rounds: 0}))
	assert.Error(t, validateFuncallConfig(&FuncallConfig{Rounds: 1, Tools: []string{"translate"}}))
}
