package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"appforge/internal/chat"
	"appforge/internal/gateway/config"
	"appforge/internal/gateway/handler/rpc"
	"appforge/internal/gateway/repository/audit"
	"appforge/internal/gateway/repository/transcriptstore"
	chatservice "appforge/internal/gateway/service/chat"
	"appforge/internal/llm"
	"appforge/internal/pipeline"
	"appforge/internal/tools"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx := context.Background()

	var engine chat.Engine
	if cfg.LLM.Fake {
		engine = &llm.FakeEngine{Response: "This is the offline assistant. Set GEMINI_API_KEY to go live."}
	} else {
		gemini, err := llm.NewGeminiEngine(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
		if err != nil {
			log.Fatalf("init gemini engine: %v", err)
		}
		engine = gemini
	}
	engine = llm.Wrap(engine, llm.Logging(), llm.RateLimit(1, 2))

	store := transcriptstore.NewFromEnv(cfg.Store.Path)

	bridge := &chat.UpdateBridge{}
	var auditStore *audit.S3Store
	if cfg.Audit.Enabled {
		recorder, err := audit.NewS3Store(audit.S3Config{
			Endpoint:  cfg.Audit.Endpoint,
			Region:    cfg.Audit.Region,
			AccessKey: cfg.Audit.AccessKey,
			SecretKey: cfg.Audit.SecretKey,
			Bucket:    cfg.Audit.Bucket,
			UseSSL:    cfg.Audit.UseSSL,
		})
		if err != nil {
			log.Printf("milestone audit store disabled: %v", err)
		} else {
			bridge.Recorder = recorder
			auditStore = recorder
		}
	}

	queue := pipeline.NewMemoryQueue(64)
	go func() {
		// Stand-in for the build pipeline's consumer side.
		for {
			select {
			case <-queue.Done():
				return
			case req := <-queue.Dequeue():
				log.Printf("build queue: %s", req)
			}
		}
	}()

	feed := pipeline.NewFeed()

	processor := &chat.Processor{
		Engine:    engine,
		ChunkSize: cfg.LLM.ChunkSize,
		WebSearch: tools.NewWebSearchTool(nil),
		AppInfo: tools.NewAppInfoTool(tools.AppInfoFunc(func(_ context.Context, topic string) (string, error) {
			return "No application details recorded yet for " + topic + ".", nil
		})),
	}

	svc, err := chatservice.New(chatservice.Options{
		Processor: processor,
		Store:     store,
		Queue:     queue,
		Bridge:    bridge,
	})
	if err != nil {
		log.Fatalf("init chat service: %v", err)
	}
	go svc.WatchPipeline(ctx, feed)

	chatHandler := rpc.NewChatHandler(svc)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/chat", chatHandler.HandleChatWS)
	if auditStore != nil {
		mux.HandleFunc("/pipeline/audit", rpc.NewAuditHandler(auditStore).HandleFetch)
	}
	mux.HandleFunc("/chat/transcript", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		chatID := strings.TrimSpace(r.URL.Query().Get("chat_id"))
		if chatID == "" {
			http.Error(w, "chat_id is required", http.StatusBadRequest)
			return
		}
		entries, err := svc.Transcript(chatID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"chat_id": chatID,
			"entries": entries,
		})
	})
	mux.HandleFunc("/pipeline/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var in struct {
			ChatID  string          `json:"chat_id"`
			Kind    string          `json:"kind"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		chatID := strings.TrimSpace(in.ChatID)
		kind := pipeline.Kind(strings.TrimSpace(in.Kind))
		if chatID == "" || kind == "" {
			http.Error(w, "chat_id and kind are required", http.StatusBadRequest)
			return
		}
		if !chat.IsProjectUpdateType(kind) {
			http.Error(w, "unknown milestone kind", http.StatusBadRequest)
			return
		}
		feed.Publish(pipeline.Event{ChatID: chatID, Kind: kind, Payload: in.Payload})
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	})

	log.Printf("Starting API server on %s", cfg.Port)
	log.Fatal(http.ListenAndServe(cfg.Port, h2c.NewHandler(mux, &http2.Server{})))
}
