package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"werewolf-extreme/engine"
)

const storytellerSystemPrompt = `You are a dramatic storyteller for a werewolf game played in a cursed village. When players die at night or on the gallows, you tell a short atmospheric story about their fate. Keep it to 2-3 sentences. Be gothic and dramatic, fitting for a village plagued by werewolves.`

// Storyteller generates a dramatic story after deaths in the game.
// onChunk is called with each text chunk as it streams in.
type Storyteller interface {
	Tell(ctx context.Context, history []string, onChunk func(string)) (string, error)
}

// globalStoryteller is nil when no provider is configured (feature disabled).
var globalStoryteller Storyteller

type llmStoryteller struct {
	llm          llms.Model
	systemPrompt string
	callOpts     []llms.CallOption
}

func (s *llmStoryteller) Tell(ctx context.Context, history []string, onChunk func(string)) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, s.systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman,
			"Village chronicle so far:\n"+strings.Join(history, "\n")+
				"\n\nTell a short dramatic story (2-3 sentences) about the latest deaths."),
	}

	var fullText strings.Builder
	opts := append(s.callOpts, llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
		text := string(chunk)
		fullText.WriteString(text)
		if onChunk != nil {
			onChunk(text)
		}
		return nil
	}))

	_, err := s.llm.GenerateContent(ctx, messages, opts...)
	return strings.TrimSpace(fullText.String()), err
}

// buildCallOpts builds LLM call options from the config.
func buildCallOpts(cfg AppConfig) []llms.CallOption {
	var opts []llms.CallOption

	if cfg.StorytellerTemperature != "" {
		if f, err := strconv.ParseFloat(cfg.StorytellerTemperature, 64); err == nil {
			opts = append(opts, llms.WithTemperature(f))
			appLogger.Infof("Storyteller: temperature=%.2f", f)
		} else {
			appLogger.Warnf("Storyteller: invalid temperature %q: %v", cfg.StorytellerTemperature, err)
		}
	}

	if cfg.StorytellerThinking != "" {
		mode := llms.ThinkingMode(cfg.StorytellerThinking)
		switch mode {
		case llms.ThinkingModeNone, llms.ThinkingModeLow, llms.ThinkingModeMedium, llms.ThinkingModeHigh, llms.ThinkingModeAuto:
			opts = append(opts, llms.WithThinkingMode(mode))
			appLogger.Infof("Storyteller: thinking=%s", mode)
		default:
			appLogger.Warnf("Storyteller: invalid thinking %q (valid: none, low, medium, high, auto)", cfg.StorytellerThinking)
		}
	}

	return opts
}

var errStorytellerDisabled = errors.New("storyteller disabled")

// newStorytellerModel builds the LLM client for the configured provider.
func newStorytellerModel(cfg AppConfig) (llms.Model, error) {
	model := cfg.StorytellerModel
	switch cfg.StorytellerProvider {
	case "ollama":
		return ollama.New(ollama.WithModel(model), ollama.WithServerURL(cfg.StorytellerOllamaURL))
	case "openai":
		return openai.New(openai.WithModel(model))
	case "claude":
		return anthropic.New(anthropic.WithModel(model))
	case "gemini":
		return googleai.New(context.Background(), googleai.WithDefaultModel(model))
	case "groq":
		return openai.New(
			openai.WithModel(model),
			openai.WithBaseURL("https://api.groq.com/openai/v1"),
			openai.WithToken(cfg.GroqAPIKey),
		)
	case "openai-compatible":
		if cfg.StorytellerURL == "" {
			return nil, errors.New("storyteller_url is required for openai-compatible provider")
		}
		opts := []openai.Option{openai.WithModel(model), openai.WithBaseURL(cfg.StorytellerURL)}
		if cfg.StorytellerAPIKey != "" {
			opts = append(opts, openai.WithToken(cfg.StorytellerAPIKey))
		}
		return openai.New(opts...)
	case "":
		return nil, errStorytellerDisabled
	}
	return nil, fmt.Errorf("unknown storyteller provider %q", cfg.StorytellerProvider)
}

// initStoryteller sets up the global storyteller from config. A broken
// provider leaves narration off; the game runs without it.
func initStoryteller(cfg AppConfig) {
	llm, err := newStorytellerModel(cfg)
	if errors.Is(err, errStorytellerDisabled) {
		appLogger.Info("Storyteller: disabled (set storyteller_provider to enable)")
		return
	}
	if err != nil {
		appLogger.Warnw("Storyteller: init failed", "provider", cfg.StorytellerProvider, "model", cfg.StorytellerModel, "error", err)
		return
	}
	globalStoryteller = &llmStoryteller{llm: llm, systemPrompt: storytellerSystemPrompt, callOpts: buildCallOpts(cfg)}
	appLogger.Infow("Storyteller: enabled", "provider", cfg.StorytellerProvider, "model", cfg.StorytellerModel)
}

// storyWG tracks running narrations so shutdown and tests can wait for them.
var storyWG sync.WaitGroup

// maybeGenerateStory streams a story into the room log after a resolution
// that killed someone. It returns immediately. The story row stays hidden
// until text arrives and is removed if the storyteller fails.
func maybeGenerateStory(code string, turn int, phase engine.Phase) {
	teller := globalStoryteller
	if teller == nil {
		return
	}

	storyWG.Add(1)
	go func() {
		defer storyWG.Done()

		history, err := getRoomLog(code)
		if err != nil {
			logError("maybeGenerateStory: fetch history", err)
			return
		}

		result, err := db.Exec(`INSERT INTO room_log (room_code, turn, phase, kind, line) VALUES (?, ?, ?, ?, '')`,
			code, turn, phase, LogStory)
		if err != nil {
			logError("maybeGenerateStory: insert placeholder", err)
			return
		}
		storyRowID, _ := result.LastInsertId()

		var mu sync.Mutex
		var buf strings.Builder

		// Flush partial text to the log every 300ms
		done := make(chan struct{})
		flushed := make(chan struct{})
		go func() {
			defer close(flushed)
			ticker := time.NewTicker(300 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					text := strings.TrimSpace(buf.String())
					mu.Unlock()
					if text != "" {
						db.Exec(`UPDATE room_log SET line = ? WHERE rowid = ?`, text, storyRowID)
						hub.sendToRoom(code, OutMessage{Type: msgStory, Story: text})
					}
				case <-done:
					return
				}
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		_, err = teller.Tell(ctx, history, func(chunk string) {
			mu.Lock()
			buf.WriteString(chunk)
			mu.Unlock()
		})

		close(done)
		<-flushed

		if err != nil {
			appLogger.Warnf("maybeGenerateStory: storyteller error in room %s: %v", code, err)
			db.Exec(`DELETE FROM room_log WHERE rowid = ?`, storyRowID)
			return
		}

		mu.Lock()
		finalText := strings.TrimSpace(buf.String())
		mu.Unlock()

		if finalText == "" {
			db.Exec(`DELETE FROM room_log WHERE rowid = ?`, storyRowID)
			return
		}

		db.Exec(`UPDATE room_log SET line = ? WHERE rowid = ?`, finalText, storyRowID)
		appLogger.Infof("Storyteller: completed story for room %s turn %d %s", code, turn, phase)
		hub.sendToRoom(code, OutMessage{Type: msgStory, Story: finalText})
		broadcastRoomState(code)
	}()
}
