// Command seed loads a demo family into the development database.  Running
// it twice is harmless: an existing demo family is left untouched.
package main

import (
	"context"
	"errors"
	"log"

	"github.com/webdevgenius2014/homeHuddleBackend/internal/config"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/database"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/logging"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/model"
	"github.com/webdevgenius2014/homeHuddleBackend/internal/repository"
)

const demoCode = "SMITH123"

var demoMembers = []model.Account{
	{Name: "Jane Smith", Email: "jane.smith@example.com", Role: model.RoleParent, IsPremium: true},
	{Name: "John Smith", Email: "john.smith@example.com", Role: model.RoleParent, IsPremium: true},
	{Name: "Timmy Smith", Email: "timmy.smith@example.com", Role: model.RoleChild},
}

func main() {
	cfg := config.Load()
	logger := logging.New("homehuddle-seed", cfg.Env, cfg.LogLevel, cfg.LogFormat)
	ctx := context.Background()

	db, err := database.Open(cfg.DBDSN)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	families := repository.NewFamilyRepo(db)
	accounts := repository.NewAccountRepo(db)

	if f, err := families.GetByCode(ctx, demoCode); err == nil {
		logger.Info("demo family already present", "family_id", f.ID, "code", f.Code)
		return
	} else if !errors.Is(err, repository.ErrNotFound) {
		log.Fatalf("lookup family: %v", err)
	}

	err = repository.NewTxManager(db).Do(ctx, func(ctx context.Context) error {
		fam := &model.Family{Name: "Smith Family", Code: demoCode}
		if err := families.Create(ctx, fam); err != nil {
			return err
		}
		for _, m := range demoMembers {
			a := m
			a.FamilyID = fam.ID
			a.IsActive = true
			a.EmailVerified = true
			if err := accounts.Create(ctx, &a); err != nil {
				return err
			}
			if err := families.AddMember(ctx, fam.ID, a.ID); err != nil {
				return err
			}
			logger.Info("seeded account", "email", a.Email, "role", a.Role)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	logger.Info("database seeded", "code", demoCode)
}
