package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/lotto/go/internal/dbconfig"
	"github.com/mcdev12/lotto/go/internal/sqlutil"
)

// Promo is one entry of the JSON snapshot
type Promo struct {
	MediaRef string `json:"media_ref"`
	Caption  string `json:"caption"`
}

// promoNamespace keeps seeded IDs stable across runs.
var promoNamespace = uuid.MustParse("6f1c2c1e-5d0b-4d57-9b1a-3f0b8f6a2c11")

func main() {
	path := "go/internal/assets/promos.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	// 1) Load the JSON snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read JSON: %v\n", err)
		os.Exit(1)
	}
	var promos []Promo
	if err := json.Unmarshal(data, &promos); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal JSON: %v\n", err)
		os.Exit(1)
	}

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(context.Background(), cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Insert in file order; the last entry becomes the active promo
	var (
		total    = len(promos)
		inserted int
		skipped  int
		errs     int
	)

	base := time.Now()
	for i, p := range promos {
		if p.MediaRef == "" {
			fmt.Fprintf(os.Stderr, "promo %d has no media_ref\n", i)
			errs++
			continue
		}
		id := uuid.NewSHA1(promoNamespace, []byte(p.MediaRef))
		createdAt := base.Add(time.Duration(i) * time.Millisecond)

		cmdTag, err := pool.Exec(context.Background(), `
            INSERT INTO promos (id, media_ref, caption, created_at)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT (id) DO NOTHING
        `,
			id.String(), p.MediaRef, p.Caption, sqlutil.ToUnixNano(createdAt),
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting promo %s: %v\n", p.MediaRef, err)
			errs++
			continue
		}
		if cmdTag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	// 4) Print summary
	fmt.Printf(
		"Promos seed complete: %d total, %d inserted, %d skipped, %d errors\n",
		total, inserted, skipped, errs,
	)
}
