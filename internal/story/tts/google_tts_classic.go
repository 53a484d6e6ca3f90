package tts

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"github.com/go-audio/wav"
	"github.com/googleapis/gax-go/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	texttospeechpb "google.golang.org/genproto/googleapis/cloud/texttospeech/v1"
)

const (
	classicSampleRate   = 24000
	classicChunkLimit   = 4800 // a little under 5000 to be safe
	defaultClassicVoice = "en-US-Chirp3-HD-Charon"
	defaultLanguageCode = "en-US"
)

// speechClient is the part of *texttospeech.Client the engine uses.
type speechClient interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
	ListVoices(ctx context.Context, req *texttospeechpb.ListVoicesRequest, opts ...gax.CallOption) (*texttospeechpb.ListVoicesResponse, error)
}

// GoogleClassicEngine narrates with Google Cloud Text-to-Speech.
type GoogleClassicEngine struct {
	client       speechClient
	voice        string
	languageCode string
	limiter      *rate.Limiter
}

func newGoogleClassicEngine(ctx context.Context, config Config) (*GoogleClassicEngine, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS client: %w", err)
	}
	return newGoogleClassicWithClient(client, config), nil
}

func newGoogleClassicWithClient(client speechClient, config Config) *GoogleClassicEngine {
	voice := config.Voice
	if voice == "" {
		voice = defaultClassicVoice
	}
	lang := config.LanguageCode
	if lang == "" {
		lang = defaultLanguageCode
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(config.RequestsPerMinute)), 1)
	}

	return &GoogleClassicEngine{
		client:       client,
		voice:        voice,
		languageCode: lang,
		limiter:      limiter,
	}
}

func (g *GoogleClassicEngine) Name() string { return EngineTypeGoogleClassic.String() }

func (g *GoogleClassicEngine) Synthesize(ctx context.Context, text string) ([]byte, error) {
	chunks := splitIntoChunks(strings.TrimSpace(text), classicChunkLimit)

	var pcm []byte
	for chunkIndex, chunk := range chunks {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
		}

		req := &texttospeechpb.SynthesizeSpeechRequest{
			Input: &texttospeechpb.SynthesisInput{
				InputSource: &texttospeechpb.SynthesisInput_Text{Text: chunk},
			},
			Voice: &texttospeechpb.VoiceSelectionParams{
				LanguageCode: g.languageCode,
				Name:         g.voice,
			},
			AudioConfig: &texttospeechpb.AudioConfig{
				AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
				SampleRateHertz: classicSampleRate,
			},
		}
		resp, err := g.client.SynthesizeSpeech(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("failed to synthesize chunk %d: %w", chunkIndex, err)
		}

		raw, err := unwrapWAV(resp.AudioContent)
		if err != nil {
			return nil, fmt.Errorf("chunk %d: %w", chunkIndex, err)
		}
		pcm = append(pcm, raw...)

		logrus.WithFields(logrus.Fields{
			"chunk": chunkIndex + 1,
			"of":    len(chunks),
			"bytes": len(raw),
		}).Debug("Synthesized narration chunk")
	}

	if len(pcm) == 0 {
		return nil, ErrEmptyAudio
	}
	return pcm, nil
}

func (g *GoogleClassicEngine) Voices(ctx context.Context) ([]VoiceInfo, error) {
	resp, err := g.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{LanguageCode: g.languageCode})
	if err != nil {
		return nil, err
	}
	voices := make([]VoiceInfo, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		lang := ""
		if len(v.LanguageCodes) > 0 {
			lang = v.LanguageCodes[0]
		}
		voices = append(voices, VoiceInfo{
			Name:         v.Name,
			LanguageCode: lang,
			Gender:       v.SsmlGender.String(),
			Natural:      isNaturalVoice(v.Name),
		})
	}
	return voices, nil
}

func isNaturalVoice(name string) bool {
	for _, family := range []string{"Chirp", "Neural2", "Wavenet", "Studio"} {
		if strings.Contains(name, family) {
			return true
		}
	}
	return false
}

// unwrapWAV strips the RIFF header LINEAR16 responses carry and returns
// 16-bit little-endian samples. Headerless input is passed through.
func unwrapWAV(data []byte) ([]byte, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return data, nil
	}
	if d.SampleRate != classicSampleRate || d.NumChans != 1 || d.BitDepth != 16 {
		return nil, fmt.Errorf("unexpected wav format %d Hz, %d channels, %d bit", d.SampleRate, d.NumChans, d.BitDepth)
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read wav samples: %w", err)
	}

	out := make([]byte, 2*len(buf.Data))
	for i, s := range buf.Data {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(s)))
	}
	return out, nil
}

func splitIntoChunks(text string, limit int) []string {
	var chunks []string
	runes := []rune(text) // safe for UTF-8
	for i := 0; i < len(runes); i += limit {
		end := i + limit
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}
