package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"gorm.io/gorm"

	"github.com/vitabid/marketplace/internal/apperr"
	"github.com/vitabid/marketplace/internal/logging"
	"github.com/vitabid/marketplace/internal/models"
	"github.com/vitabid/marketplace/internal/repo"
)

type ObjectStorage interface {
	Upload(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, objectName string) error
}

type EventPublisher interface {
	PublishEvent(ctx context.Context, topic, key string, event any) error
}

type ProductIndexer interface {
	IndexProduct(ctx context.Context, p *models.Product) error
	DeleteProduct(ctx context.Context, id uint) error
}

type ProductService struct {
	Products *repo.ProductRepo
	Storage  ObjectStorage
	Producer EventPublisher
	Index    ProductIndexer
}

type ProductInput struct {
	Name        string
	Description string
	Price       float64
	Stock       uint
	Category    string
	Status      string
}

// Upload is one incoming image file. Thumbnail marks the listing image.
type Upload struct {
	Name        string
	Content     io.Reader
	Size        int64
	ContentType string
	Thumbnail   bool
}

func (s *ProductService) Create(ctx context.Context, sellerID uint, in ProductInput, files []Upload) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "product.create", "seller_id", sellerID)

	product := &models.Product{
		SellerID:    sellerID,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Category:    in.Category,
		Status:      in.Status,
	}
	if err := s.Products.Create(ctx, product); err != nil {
		return nil, err
	}

	images := make([]models.ProductImage, 0, len(files))
	for _, f := range files {
		objectName := fmt.Sprintf("products/%d/%s", product.ID, f.Name)
		imageURL, err := s.Storage.Upload(ctx, objectName, f.Content, f.Size, f.ContentType)
		if err != nil {
			l.Error("image_upload_failed", "object", objectName, "error", err)
			return nil, err
		}
		images = append(images, models.ProductImage{
			ProductID:   product.ID,
			ImageURL:    imageURL,
			IsThumbnail: f.Thumbnail,
		})
	}
	if err := s.Products.SaveImages(ctx, images); err != nil {
		return nil, err
	}

	s.publish(ctx, "product_created", product)
	s.index(ctx, product)

	return s.Products.FindByID(ctx, product.ID)
}

func (s *ProductService) Update(ctx context.Context, sellerID, productID uint, in ProductInput, files []Upload) (*models.Product, error) {
	l := logging.FromContext(ctx).With("svc", "product.update", "seller_id", sellerID, "product_id", productID)

	existing, err := s.Products.FindOwned(ctx, productID, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrProductNotFound
		}
		return nil, err
	}

	// Old objects are removed best-effort: a stale object in the bucket is
	// preferable to a failed update.
	for _, img := range existing.Images {
		if objectName, ok := objectNameFromURL(img.ImageURL); ok {
			if err := s.Storage.Remove(ctx, objectName); err != nil {
				l.Warn("stale_image_remove_failed", "object", objectName, "error", err)
			}
		}
	}
	if err := s.Products.DeleteImagesByProduct(ctx, productID); err != nil {
		return nil, err
	}

	existing.Name = in.Name
	existing.Description = in.Description
	existing.Price = in.Price
	existing.Stock = in.Stock
	existing.Category = in.Category
	existing.Status = in.Status
	existing.Images = nil
	if err := s.Products.Save(ctx, existing); err != nil {
		return nil, err
	}

	images := make([]models.ProductImage, 0, len(files))
	for _, f := range files {
		objectName := fmt.Sprintf("products/%d/%s", productID, f.Name)
		imageURL, err := s.Storage.Upload(ctx, objectName, f.Content, f.Size, f.ContentType)
		if err != nil {
			l.Error("image_upload_failed", "object", objectName, "error", err)
			return nil, err
		}
		images = append(images, models.ProductImage{
			ProductID:   productID,
			ImageURL:    imageURL,
			IsThumbnail: f.Thumbnail,
		})
	}
	if err := s.Products.SaveImages(ctx, images); err != nil {
		return nil, err
	}

	updated, err := s.Products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "product_updated", updated)
	s.index(ctx, updated)
	return updated, nil
}

func (s *ProductService) Delete(ctx context.Context, sellerID, productID uint) error {
	l := logging.FromContext(ctx).With("svc", "product.delete", "seller_id", sellerID, "product_id", productID)

	existing, err := s.Products.FindOwned(ctx, productID, sellerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.ErrProductNotFound
		}
		return err
	}

	for _, img := range existing.Images {
		if objectName, ok := objectNameFromURL(img.ImageURL); ok {
			if err := s.Storage.Remove(ctx, objectName); err != nil {
				l.Warn("image_remove_failed", "object", objectName, "error", err)
			}
		}
	}
	if err := s.Products.Delete(ctx, productID); err != nil {
		return err
	}

	s.publish(ctx, "product_deleted", existing)
	if err := s.Index.DeleteProduct(ctx, productID); err != nil {
		l.Warn("index_delete_failed", "error", err)
	}
	return nil
}

func (s *ProductService) Get(ctx context.Context, id uint) (*models.Product, error) {
	p, err := s.Products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

func (s *ProductService) List(ctx context.Context, offset, limit int) ([]models.Product, int64, error) {
	return s.Products.List(ctx, offset, limit)
}

func (s *ProductService) publish(ctx context.Context, eventType string, p *models.Product) {
	l := logging.FromContext(ctx)
	event := map[string]any{
		"type":       eventType,
		"product_id": p.ID,
		"seller_id":  p.SellerID,
		"name":       p.Name,
	}
	if err := s.Producer.PublishEvent(ctx, "product_events", fmt.Sprint(p.SellerID), event); err != nil {
		l.Warn("kafka_publish_failed", "event", eventType, "error", err)
	}
}

func (s *ProductService) index(ctx context.Context, p *models.Product) {
	if err := s.Index.IndexProduct(ctx, p); err != nil {
		logging.FromContext(ctx).Warn("index_failed", "product_id", p.ID, "error", err)
	}
}

// objectNameFromURL recovers "products/<id>/<file>" from a stored image URL.
func objectNameFromURL(imageURL string) (string, bool) {
	u, err := url.Parse(imageURL)
	if err != nil {
		return "", false
	}
	parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
