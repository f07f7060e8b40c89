package businesses

import (
	"context"
	"fmt"
	"log"

	"github.com/samber/mo"

	"msgbridge/core"
	"msgbridge/db"
	"msgbridge/models"
)

type BusinessesService struct {
	businessesRepo *db.PostgresBusinessesRepository
}

func NewBusinessesService(businessesRepo *db.PostgresBusinessesRepository) *BusinessesService {
	return &BusinessesService{businessesRepo: businessesRepo}
}

func (s *BusinessesService) GetBusinessByID(
	ctx context.Context,
	id string,
) (mo.Option[*models.Business], error) {
	log.Printf("📋 Starting to get business by ID: %s", id)
	if !core.IsValidULID(id) {
		return mo.None[*models.Business](), fmt.Errorf("business ID must be a valid ULID")
	}

	maybeBusiness, err := s.businessesRepo.GetBusinessByID(ctx, id)
	if err != nil {
		return mo.None[*models.Business](), fmt.Errorf("failed to get business: %w", err)
	}
	if !maybeBusiness.IsPresent() {
		log.Printf("📋 Completed successfully - business not found")
		return mo.None[*models.Business](), nil
	}

	log.Printf("📋 Completed successfully - retrieved business: %s", id)
	return maybeBusiness, nil
}
