package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	awsbedrock "github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awspolly "github.com/aws/aws-sdk-go-v2/service/polly"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awssecrets "github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	awstranscribe "github.com/aws/aws-sdk-go-v2/service/transcribe"
	awstranslate "github.com/aws/aws-sdk-go-v2/service/translate"

	"github.com/1282saa/ringringv2/handler"
	"github.com/1282saa/ringringv2/internal/integrations/bedrock"
	"github.com/1282saa/ringringv2/internal/integrations/elevenlabs"
	"github.com/1282saa/ringringv2/internal/integrations/mediastore"
	"github.com/1282saa/ringringv2/internal/integrations/paramstore"
	pollyclient "github.com/1282saa/ringringv2/internal/integrations/polly"
	"github.com/1282saa/ringringv2/internal/integrations/secrets"
	transcribeclient "github.com/1282saa/ringringv2/internal/integrations/transcribe"
	translateclient "github.com/1282saa/ringringv2/internal/integrations/translate"
	"github.com/1282saa/ringringv2/internal/store"
	"github.com/1282saa/ringringv2/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	tableName := mustEnv("DYNAMODB_TABLE")
	bucket := mustEnv("S3_BUCKET")
	paramPrefix := mustEnv("PARAM_PREFIX")

	// ---- AWS SDK config ----
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		slog.Error("failed to load AWS config", "err", err)
		os.Exit(1)
	}

	// ---- Clients ----
	storeClient, err := store.New(awsdynamodb.NewFromConfig(cfg), tableName)
	if err != nil {
		fatal("create store client", err)
	}
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(cfg))
	if err != nil {
		fatal("create SSM client", err)
	}
	secretsClient, err := secrets.New(awssecrets.NewFromConfig(cfg))
	if err != nil {
		fatal("create secrets client", err)
	}
	s3Client := awss3.NewFromConfig(cfg)
	media, err := mediastore.New(s3Client, awss3.NewPresignClient(s3Client), bucket)
	if err != nil {
		fatal("create media store", err)
	}
	bedrockClient, err := bedrock.New(awsbedrock.NewFromConfig(cfg))
	if err != nil {
		fatal("create bedrock client", err)
	}
	elevenClient, err := elevenlabs.NewClient(secretsClient)
	if err != nil {
		fatal("create elevenlabs client", err)
	}
	pollyClient, err := pollyclient.New(awspolly.NewFromConfig(cfg))
	if err != nil {
		fatal("create polly client", err)
	}
	transcriber, err := transcribeclient.New(awstranscribe.NewFromConfig(cfg), media)
	if err != nil {
		fatal("create transcribe client", err)
	}
	translator, err := translateclient.New(awstranslate.NewFromConfig(cfg))
	if err != nil {
		fatal("create translate client", err)
	}

	// ---- Services ----
	chatService, err := usecase.NewChatService(ssmClient, bedrockClient, storeClient, paramPrefix)
	if err != nil {
		fatal("create chat service", err)
	}
	analyzeService, err := usecase.NewAnalyzeService(bedrockClient, chatService)
	if err != nil {
		fatal("create analyze service", err)
	}
	settingsService, err := usecase.NewSettingsService(storeClient)
	if err != nil {
		fatal("create settings service", err)
	}
	sessionService, err := usecase.NewSessionService(storeClient)
	if err != nil {
		fatal("create session service", err)
	}
	petService, err := usecase.NewPetService(storeClient, media)
	if err != nil {
		fatal("create pet service", err)
	}
	tutorService, err := usecase.NewTutorService(storeClient, media)
	if err != nil {
		fatal("create tutor service", err)
	}
	voiceService, err := usecase.NewVoiceService(storeClient, elevenClient, media)
	if err != nil {
		fatal("create voice service", err)
	}
	memoryService, err := usecase.NewMemoryService(storeClient, bedrockClient, chatService)
	if err != nil {
		fatal("create memory service", err)
	}
	speechService, err := usecase.NewSpeechService(elevenClient, pollyClient, transcriber, translator, voiceService, cfg.Credentials, cfg.Region)
	if err != nil {
		fatal("create speech service", err)
	}
	usageService, err := usecase.NewUsageService(storeClient)
	if err != nil {
		fatal("create usage service", err)
	}

	// ---- Handler ----
	h, err := handler.NewHandler(handler.Services{
		Chat:     chatService,
		Speech:   speechService,
		Analyze:  analyzeService,
		Settings: settingsService,
		Sessions: sessionService,
		Pets:     petService,
		Tutors:   tutorService,
		Voice:    voiceService,
		Memory:   memoryService,
		Usage:    usageService,
	})
	if err != nil {
		fatal("create handler", err)
	}

	lambda.Start(h.Handle)
}

func fatal(what string, err error) {
	slog.Error("failed to "+what, "err", err)
	os.Exit(1)
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		slog.Error("required environment variable is not set", "key", key)
		os.Exit(1)
	}
	return v
}
