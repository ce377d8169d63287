package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domaincatalog "stayledger/internal/domain/catalog"
)

type CatalogRepository struct {
	col *mongo.Collection
}

func NewCatalogRepository(db *mongo.Database) *CatalogRepository {
	return &CatalogRepository{col: db.Collection(colResources)}
}

func (r *CatalogRepository) ByRef(ctx context.Context, ref domaincatalog.ResourceRef) (*domaincatalog.Resource, error) {
	var doc resourceDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": ref.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domaincatalog.ErrResourceNotFound
		}
		return nil, err
	}
	return doc.toResource(), nil
}

func (r *CatalogRepository) Save(ctx context.Context, resource *domaincatalog.Resource) error {
	if err := resource.Validate(); err != nil {
		return err
	}
	doc := newResourceDocument(resource)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

var _ domaincatalog.Repository = (*CatalogRepository)(nil)
