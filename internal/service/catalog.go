package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/servicehub/backend/internal/logging"
	"github.com/servicehub/backend/internal/models"
	"github.com/servicehub/backend/internal/repo"
)

const servicesIndex = "services"

// CatalogService is a thin layer over the catalog tables. Writes are
// mirrored into the Elasticsearch index best-effort, the database stays the
// source of truth.
type CatalogService struct {
	Repo *repo.GormRepo
	ES   *elasticsearch.Client // nil disables search indexing
}

func (s *CatalogService) List(ctx context.Context) ([]models.Service, error) {
	return s.Repo.ListServices(ctx)
}

func (s *CatalogService) Get(ctx context.Context, id uint) (*models.Service, error) {
	return s.Repo.GetService(ctx, id)
}

func (s *CatalogService) Create(ctx context.Context, item *models.Service) error {
	if err := s.Repo.CreateService(ctx, item); err != nil {
		return err
	}
	s.index(ctx, item)
	return nil
}

func (s *CatalogService) Update(ctx context.Context, item *models.Service) error {
	if err := s.Repo.UpdateService(ctx, item); err != nil {
		return err
	}
	s.index(ctx, item)
	return nil
}

func (s *CatalogService) Delete(ctx context.Context, id uint) error {
	if err := s.Repo.DeleteService(ctx, id); err != nil {
		return err
	}
	s.deindex(ctx, id)
	return nil
}

func (s *CatalogService) Search(ctx context.Context, query string) ([]models.Service, error) {
	if s.ES == nil {
		return nil, fmt.Errorf("search is not configured")
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     query,
				"fields":    []string{"name^2", "description", "category", "provider"},
				"fuzziness": "AUTO",
			},
		},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("search body: %w", err)
	}

	res, err := s.ES.Search(
		s.ES.Search.WithContext(ctx),
		s.ES.Search.WithIndex(servicesIndex),
		s.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				Source models.Service `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, err
	}

	items := make([]models.Service, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		items[i] = hit.Source
	}
	return items, nil
}

func (s *CatalogService) index(ctx context.Context, item *models.Service) {
	if s.ES == nil {
		return
	}

	data, err := json.Marshal(item)
	if err != nil {
		logging.FromContext(ctx).Error("service index marshal failed", "service_id", item.ID, "error", err)
		return
	}

	res, err := s.ES.Index(
		servicesIndex,
		bytes.NewReader(data),
		s.ES.Index.WithDocumentID(strconv.FormatUint(uint64(item.ID), 10)),
		s.ES.Index.WithContext(ctx),
	)
	if err != nil {
		logging.FromContext(ctx).Error("service index failed", "service_id", item.ID, "error", err)
		return
	}
	res.Body.Close()
}

func (s *CatalogService) deindex(ctx context.Context, id uint) {
	if s.ES == nil {
		return
	}

	res, err := s.ES.Delete(
		servicesIndex,
		strconv.FormatUint(uint64(id), 10),
		s.ES.Delete.WithContext(ctx),
	)
	if err != nil {
		logging.FromContext(ctx).Error("service deindex failed", "service_id", id, "error", err)
		return
	}
	res.Body.Close()
}
