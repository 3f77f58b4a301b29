package narrate

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
)

// PollyConfig controls the Amazon Polly backend. When AccessKeyID is
// empty the default AWS credential chain is used.
type PollyConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

// pollyAPI is the slice of the Polly client the backend needs.
type pollyAPI interface {
	DescribeVoices(ctx context.Context, params *polly.DescribeVoicesInput, optFns ...func(*polly.Options)) (*polly.DescribeVoicesOutput, error)
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// PollyBackend synthesizes speech with Amazon Polly and streams the
// returned MP3 into the audio sink.
type PollyBackend struct {
	client pollyAPI
	sink   AudioSink
}

func NewPollyBackend(ctx context.Context, cfg PollyConfig, sink AudioSink) (*PollyBackend, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &PollyBackend{client: polly.NewFromConfig(awsCfg), sink: sink}, nil
}

func (b *PollyBackend) Name() string { return "polly" }

func (b *PollyBackend) DefaultVoice() string { return "Joanna" }

func (b *PollyBackend) Voices(ctx context.Context) ([]Voice, error) {
	out := make([]Voice, 0, 64)
	var next *string
	for {
		res, err := b.client.DescribeVoices(ctx, &polly.DescribeVoicesInput{NextToken: next})
		if err != nil {
			// Credential or network trouble degrades to the default
			// voice instead of blocking narration.
			return nil, nil
		}
		for _, v := range res.Voices {
			id := string(v.Id)
			display := id
			if v.LanguageCode != "" {
				display = fmt.Sprintf("%s [%s]", id, v.LanguageCode)
			}
			out = append(out, Voice{DisplayName: display, ID: id})
		}
		if res.NextToken == nil {
			break
		}
		next = res.NextToken
	}
	return out, nil
}

func (b *PollyBackend) Speak(ctx context.Context, text, voiceID string) error {
	if voiceID == "" {
		voiceID = b.DefaultVoice()
	}
	res, err := b.client.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		VoiceId:      types.VoiceId(voiceID),
		OutputFormat: types.OutputFormatMp3,
		Engine:       pollyEngineFor(voiceID),
	})
	if err != nil {
		return fmt.Errorf("synthesize speech: %w", err)
	}
	defer res.AudioStream.Close()
	return b.sink.Play(ctx, "mp3", res.AudioStream)
}

// pollyEngineFor keeps the standard engine for the classic voices and
// lets newer voice ids opt into neural.
func pollyEngineFor(voiceID string) types.Engine {
	switch strings.ToLower(voiceID) {
	case "joanna", "matthew", "amy", "brian", "ivy", "kendra", "kimberly", "salli", "joey", "justin", "emma":
		return types.EngineStandard
	default:
		return types.EngineNeural
	}
}
