package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/servicehub/backend/internal/config"
	"github.com/servicehub/backend/internal/hash"
	"github.com/servicehub/backend/internal/logging"
	"github.com/servicehub/backend/internal/models"
	"github.com/servicehub/backend/internal/repo"
)

// Run makes the database usable: roles always exist, the admin account is
// created when configured and the catalog gets sample data on first start.
func Run(ctx context.Context, r *repo.GormRepo, cfg *config.Config) error {
	if err := ensureRoles(ctx, r); err != nil {
		return err
	}
	if err := ensureAdmin(ctx, r, cfg); err != nil {
		return err
	}
	return ensureSampleServices(ctx, r)
}

func ensureRoles(ctx context.Context, r *repo.GormRepo) error {
	for _, name := range []string{models.RoleAdmin, models.RoleCustomer} {
		role := models.Role{Name: name}
		if err := r.DB.WithContext(ctx).Where("name = ?", name).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
	}
	return nil
}

func ensureAdmin(ctx context.Context, r *repo.GormRepo, cfg *config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		logging.FromContext(ctx).Info("admin seed skipped, ADMIN_EMAIL/ADMIN_PASSWORD not set")
		return nil
	}

	if _, err := r.FindUserByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, repo.ErrUserNotFound) {
		return err
	}

	pwHash, err := hash.HashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	admin := models.User{
		Username:       cfg.AdminEmail,
		Email:          cfg.AdminEmail,
		PasswordHash:   pwHash,
		EmailConfirmed: true,
	}
	if err := r.InsertUser(ctx, &admin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	if err := r.AddToRole(ctx, &admin, models.RoleAdmin); err != nil {
		return fmt.Errorf("seed admin role: %w", err)
	}

	logging.FromContext(ctx).Info("admin user seeded", "email", cfg.AdminEmail)
	return nil
}

func ensureSampleServices(ctx context.Context, r *repo.GormRepo) error {
	count, err := r.CountServices(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	samples := []models.Service{
		{
			Name:         "Desarrollo Web Full Stack",
			Description:  "Aplicaciones web completas con frontend y backend",
			Price:        1500,
			PriceType:    "proyecto",
			Category:     "Desarrollo",
			Provider:     "TechSolutions",
			Rating:       4.8,
			ReviewCount:  24,
			DeliveryTime: "4 semanas",
			Verified:     true,
			Languages:    `["Español","Inglés"]`,
		},
		{
			Name:         "Diseño de Marca",
			Description:  "Identidad visual completa: logo, paleta y tipografía",
			Price:        450,
			PriceType:    "proyecto",
			Category:     "Diseño",
			Provider:     "CreativeStudio",
			Rating:       4.6,
			ReviewCount:  18,
			DeliveryTime: "2 semanas",
			Verified:     true,
			Languages:    `["Español"]`,
		},
		{
			Name:         "Consultoría SEO",
			Description:  "Auditoría y optimización para buscadores",
			Price:        80,
			PriceType:    "hora",
			Category:     "Marketing",
			Provider:     "GrowthLab",
			Rating:       4.9,
			ReviewCount:  31,
			DeliveryTime: "1 semana",
			Languages:    `["Español","Inglés"]`,
		},
	}

	if err := r.DB.WithContext(ctx).Create(&samples).Error; err != nil {
		return fmt.Errorf("seed services: %w", err)
	}

	logging.FromContext(ctx).Info("sample services seeded", "count", len(samples))
	return nil
}
