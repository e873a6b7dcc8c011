package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"classifier_server/core/domain"
	"classifier_server/core/port/out"
)

const resultCollection = "classification_results"

// resultDocument is the persisted shape of a classification result.
type resultDocument struct {
	ID           string    `bson:"id"`
	Category     string    `bson:"category"`
	SenderDomain string    `bson:"sender_domain"`
	Confidence   float64   `bson:"confidence"`
	Provenance   string    `bson:"provenance"`

	BusinessName    string `bson:"business_name"`
	BusinessWebsite string `bson:"business_website,omitempty"`
	DPOEmail        string `bson:"dpo_email,omitempty"`
	Industry        string `bson:"industry,omitempty"`
	Location        string `bson:"location,omitempty"`

	Emails      []string `bson:"emails,omitempty"`
	Phones      []string `bson:"phones,omitempty"`
	CardNumbers []string `bson:"card_numbers,omitempty"`

	Footer string   `bson:"footer,omitempty"`
	URLs   []string `bson:"urls,omitempty"`

	ProcessedAt time.Time `bson:"processed_at"`
}

// ResultAdapter persists classification results in MongoDB.
type ResultAdapter struct {
	collection *mongo.Collection
}

func NewResultAdapter(client *mongo.Client, database string) *ResultAdapter {
	return &ResultAdapter{
		collection: client.Database(database).Collection(resultCollection),
	}
}

// EnsureIndexes creates the indexes result queries depend on.
func (a *ResultAdapter) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{
				{Key: "sender_domain", Value: 1},
				{Key: "processed_at", Value: -1},
			},
		},
		{
			Keys: bson.D{
				{Key: "category", Value: 1},
				{Key: "processed_at", Value: -1},
			},
		},
	}

	_, err := a.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("create result indexes: %w", err)
	}
	return nil
}

func (a *ResultAdapter) Store(ctx context.Context, result *domain.ClassificationResult) error {
	doc := toDocument(result)

	opts := options.Replace().SetUpsert(true)
	_, err := a.collection.ReplaceOne(ctx, bson.M{"id": doc.ID}, doc, opts)
	if err != nil {
		return fmt.Errorf("store result: %w", err)
	}
	return nil
}

func (a *ResultAdapter) Get(ctx context.Context, id string) (*domain.ClassificationResult, error) {
	var doc resultDocument
	err := a.collection.FindOne(ctx, bson.M{"id": id}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}
	return fromDocument(&doc), nil
}

func (a *ResultAdapter) QueryByDomain(ctx context.Context, senderDomain string, filter out.ResultFilter) ([]*domain.ClassificationResult, error) {
	query := bson.M{"sender_domain": senderDomain}
	if filter.Category != "" {
		query["category"] = string(filter.Category)
	}
	if !filter.Since.IsZero() {
		query["processed_at"] = bson.M{"$gte": filter.Since}
	}

	limit := int64(filter.Limit)
	if limit <= 0 {
		limit = 50
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "processed_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(int64(filter.Offset))

	cursor, err := a.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer cursor.Close(ctx)

	var results []*domain.ClassificationResult
	for cursor.Next(ctx) {
		var doc resultDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode result: %w", err)
		}
		results = append(results, fromDocument(&doc))
	}
	return results, cursor.Err()
}

func toDocument(r *domain.ClassificationResult) *resultDocument {
	return &resultDocument{
		ID:              r.ID,
		Category:        string(r.Category),
		SenderDomain:    r.Metadata.SenderDomain,
		Confidence:      r.Confidence,
		Provenance:      string(r.Provenance),
		BusinessName:    r.Entity.Name,
		BusinessWebsite: r.Entity.Website,
		DPOEmail:        r.Entity.DPOEmail,
		Industry:        r.Entity.Industry,
		Location:        r.Entity.Location,
		Emails:          r.Data.Emails,
		Phones:          r.Data.Phones,
		CardNumbers:     r.Data.CardNumbers,
		Footer:          r.Metadata.Footer,
		URLs:            r.Metadata.URLs,
		ProcessedAt:     r.ProcessedAt,
	}
}

func fromDocument(doc *resultDocument) *domain.ClassificationResult {
	return &domain.ClassificationResult{
		ID:         doc.ID,
		Category:   domain.ParseCategory(doc.Category),
		Confidence: doc.Confidence,
		Provenance: domain.Provenance(doc.Provenance),
		Entity: domain.BusinessEntity{
			Name:     doc.BusinessName,
			Website:  doc.BusinessWebsite,
			DPOEmail: doc.DPOEmail,
			Industry: doc.Industry,
			Location: doc.Location,
		},
		Data: domain.ExtractedUserData{
			Emails:      doc.Emails,
			Phones:      doc.Phones,
			CardNumbers: doc.CardNumbers,
		},
		Metadata: domain.EmailMetadata{
			SenderDomain: doc.SenderDomain,
			Footer:       doc.Footer,
			URLs:         doc.URLs,
		},
		ProcessedAt: doc.ProcessedAt,
	}
}
