package main

import (
	"os"

	"github.com/rs/zerolog/log"

	"github.com/thekoushikdurgas/diary/internal/diaryservice"
)

func main() {
	if err := diaryservice.Run(); err != nil {
		log.Error().Err(err).Msg("diary service exited with error")
		os.Exit(1)
	}
}
