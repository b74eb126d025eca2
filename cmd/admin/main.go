package main

import (
	"fmt"
	"os"

	"roomgo/backend/internal/models"
	"roomgo/backend/internal/storage"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"roomgo/backend/internal/config"
)

// Невеликий адмінський CLI поверх сховища: огляд кімнат та учасників,
// деактивація кімнат, кількість онлайн-користувачів.
func main() {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file found")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect database")
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	store := storage.NewStorageService(db, rdb)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "rooms":
		rooms, total, err := store.FindAndCountRooms(0, 100)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to list rooms")
		}
		fmt.Printf("%d active rooms with members:\n", total)
		for _, r := range rooms {
			count, _ := store.CountMemberships(r.UUID, models.MemberJoined)
			fmt.Printf("  %s  %-24s %d/%d users  policy=%s\n", r.UUID, r.Name, count, r.MaxUsers, r.JoinPolicy)
		}

	case "members":
		if len(os.Args) < 3 {
			usage()
			os.Exit(1)
		}
		members, err := store.FindRoomMembers(os.Args[2])
		if err != nil {
			log.Fatal().Err(err).Msg("failed to list members")
		}
		for _, m := range members {
			fmt.Printf("  %-8s %-24s joined %s\n", m.Role, m.Nickname, m.JoinedAt.Format("2006-01-02 15:04"))
		}

	case "deactivate":
		if len(os.Args) < 3 {
			usage()
			os.Exit(1)
		}
		room, err := store.FindRoomByUUID(os.Args[2], false)
		if err != nil || room == nil {
			log.Fatal().Err(err).Msg("room not found")
		}
		room.Status = models.StatusInactive
		if err := store.SaveRoom(room); err != nil {
			log.Fatal().Err(err).Msg("failed to deactivate room")
		}
		fmt.Printf("room %s deactivated\n", room.UUID)

	case "online":
		count, err := store.CountOnlineUsers()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to count online users")
		}
		fmt.Printf("%d users online\n", count)

	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: admin <rooms|members <roomUuid>|deactivate <roomUuid>|online>")
}
