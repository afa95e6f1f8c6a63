package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ajtazer/tazerchat/config"
	"github.com/ajtazer/tazerchat/internal/feed"
	chat_handler "github.com/ajtazer/tazerchat/internal/handlers/chat-handler"
	message_repo "github.com/ajtazer/tazerchat/internal/repo/message"
	room_repo "github.com/ajtazer/tazerchat/internal/repo/room"
	"github.com/ajtazer/tazerchat/internal/routers"
	chat_service "github.com/ajtazer/tazerchat/internal/use-case/chat-case"
	"github.com/ajtazer/tazerchat/internal/websocket"
	"github.com/ajtazer/tazerchat/state"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// initialize the application
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appState, err := state.InitAppState(ctx, stop)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application state")
	}
	defer appState.Close()

	changeFeed, err := feed.New(ctx, appState.Redis, config.Conf.CHAT.FeedShards, config.Conf.CHAT.FeedBuffer)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start change feed")
	}
	defer changeFeed.Close()

	rooms := room_repo.NewRoomRepo(appState.DB)
	messages := message_repo.NewMessageRepo(appState.Mongo, changeFeed)
	if err := messages.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to ensure message indexes")
	}

	wsHub := websocket.NewHub()
	log.Info().Msg("Websocket hub initialized")

	wsHandler := websocket.NewWSHandler(wsHub, rooms, messages, changeFeed)
	wsHandler.HistoryLimit = config.Conf.CHAT.HistoryLimit

	chatHandler := chat_handler.NewChatHandler(chat_service.NewChatService(rooms, messages))

	r := routers.NewRouter(chatHandler, wsHandler, wsHub)

	server := &http.Server{
		Addr:         config.Conf.App.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	// serve the application
	go func() {
		log.Info().Msgf("Starting server on http://localhost%s", config.Conf.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			panic(fmt.Sprintf("ListenAndServe failed: %v", err))
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutdown initiated...")
	// gracefully shutdown the application
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		fmt.Printf("Graceful shutdown failed: %v\n", err)
	} else {
		fmt.Println("Server exited gracefully.")
	}
	wsHub.Close()
}
