// Package engine is the facade over the chat drivers, the conversation
// memory, the SSE writer and the JSON helper.
//
//	cfg, err := config.Load("")
//	if err != nil { ... }
//	store, closeStore, err := engine.OpenStore(ctx, cfg.Memory)
//	if err != nil { ... }
//	defer closeStore()
//
//	eng, err := engine.New(cfg, engine.WithStore(store))
//	chat, err := eng.Chat("")            // default.chat
//	history, err := eng.MemoryDriver("") // default.memory
//	history = history.WithParent("Thread", "42")
//
// Chat and memory drivers are cached per canonical provider name, so
// eng.Chat("anthropic") and eng.Chat("claude") return the same instance.
package engine
