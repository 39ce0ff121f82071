// Package mongo is a Store backed by MongoDB. Line items and customer sub-lists are embedded
// in their parent documents.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/mmdatafocus/autoservice_backend/models"
	"github.com/mmdatafocus/autoservice_backend/store"
	"github.com/mmdatafocus/autoservice_backend/utils"
)

// Collection name constants.
const (
	colUsers     = "users"
	colCustomers = "customers"
	colProducts  = "products"
	colServices  = "services"
	colInvoices  = "invoices"
	colFollowUps = "customer_follow_ups"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func New(client *mongo.Client, database string) *Store {
	return &Store{client: client, db: client.Database(database)}
}

func (s *Store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// translate maps driver errors onto the store sentinels.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case isNoDocuments(err):
		return utils.ErrorRecordNotFound
	case mongo.IsDuplicateKeyError(err):
		return utils.ErrorDuplicateKey
	default:
		return fmt.Errorf("store/mongo: %s: %w", op, err)
	}
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		colCustomers: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}},
		},
		colInvoices: {
			{Keys: bson.D{{Key: "invoice_number", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: -1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		colFollowUps: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "invoice_id", Value: 1}}},
		},
	}
}

// ==================== Invoice Store ====================

func (s *Store) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	_, err := s.col(colInvoices).InsertOne(ctx, toInvoiceDoc(inv))
	return translate("create invoice", err)
}

func (s *Store) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	var d invoiceDoc
	if err := s.col(colInvoices).FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, translate("get invoice", err)
	}
	return fromInvoiceDoc(&d)
}

func invoiceFilter(f models.InvoiceFilter) bson.M {
	filter := bson.M{}
	if f.UserId != "" {
		filter["user_id"] = f.UserId
	}
	if f.CustomerId != "" {
		filter["customer_id"] = f.CustomerId
	}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	if f.DateFrom != nil || f.DateTo != nil {
		date := bson.M{}
		if f.DateFrom != nil {
			date["$gte"] = *f.DateFrom
		}
		if f.DateTo != nil {
			date["$lte"] = *f.DateTo
		}
		filter["date"] = date
	}
	return filter
}

func (s *Store) ListInvoices(ctx context.Context, filter models.InvoiceFilter) ([]*models.Invoice, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := s.col(colInvoices).Find(ctx, invoiceFilter(filter), opts)
	if err != nil {
		return nil, translate("list invoices", err)
	}
	var docs []invoiceDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate("list invoices", err)
	}
	result := make([]*models.Invoice, 0, len(docs))
	for i := range docs {
		inv, err := fromInvoiceDoc(&docs[i])
		if err != nil {
			return nil, err
		}
		result = append(result, inv)
	}
	return result, nil
}

func (s *Store) LatestInvoice(ctx context.Context) (*models.Invoice, error) {
	var d invoiceDoc
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if err := s.col(colInvoices).FindOne(ctx, bson.M{}, opts).Decode(&d); err != nil {
		return nil, translate("latest invoice", err)
	}
	return fromInvoiceDoc(&d)
}

func (s *Store) UpdateInvoice(ctx context.Context, inv *models.Invoice) error {
	res, err := s.col(colInvoices).ReplaceOne(ctx, bson.M{"_id": inv.ID}, toInvoiceDoc(inv))
	if err != nil {
		return translate("update invoice", err)
	}
	if res.MatchedCount == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

func (s *Store) DeleteInvoice(ctx context.Context, id string) error {
	res, err := s.col(colInvoices).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return translate("delete invoice", err)
	}
	if res.DeletedCount == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

// ==================== Customer Store ====================

func (s *Store) CreateCustomer(ctx context.Context, c *models.Customer) error {
	_, err := s.col(colCustomers).InsertOne(ctx, toCustomerDoc(c))
	return translate("create customer", err)
}

func (s *Store) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	var d customerDoc
	if err := s.col(colCustomers).FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, translate("get customer", err)
	}
	return fromCustomerDoc(&d)
}

func (s *Store) GetCustomers(ctx context.Context, ids []string) ([]*models.Customer, error) {
	result := make([]*models.Customer, 0, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	cur, err := s.col(colCustomers).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, translate("get customers", err)
	}
	var docs []customerDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate("get customers", err)
	}
	for i := range docs {
		c, err := fromCustomerDoc(&docs[i])
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}

// pushUnique appends entry to the array field unless an element with the same id is present.
func (s *Store) pushUnique(ctx context.Context, op string, customerID string, field string, entryID string, entry any) error {
	res, err := s.col(colCustomers).UpdateOne(ctx,
		bson.M{"_id": customerID, field + ".id": bson.M{"$ne": entryID}},
		bson.M{"$push": bson.M{field: entry}, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return translate(op, err)
	}
	if res.MatchedCount > 0 {
		return nil
	}
	return s.customerExists(ctx, op, customerID)
}

func (s *Store) customerExists(ctx context.Context, op string, customerID string) error {
	n, err := s.col(colCustomers).CountDocuments(ctx, bson.M{"_id": customerID})
	if err != nil {
		return translate(op, err)
	}
	if n == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

func (s *Store) AppendPurchaseHistory(ctx context.Context, customerID string, entry models.PurchaseHistoryEntry) error {
	return s.pushUnique(ctx, "append purchase history", customerID, "purchase_history", entry.ID, toPurchaseHistoryDoc(entry))
}

func (s *Store) AppendNextService(ctx context.Context, customerID string, entry models.NextService) error {
	return s.pushUnique(ctx, "append next service", customerID, "next_services", entry.ID, toNextServiceDoc(entry))
}

func (s *Store) UpdateNextService(ctx context.Context, customerID string, entry models.NextService) error {
	res, err := s.col(colCustomers).UpdateOne(ctx,
		bson.M{"_id": customerID, "next_services.id": entry.ID},
		bson.M{"$set": bson.M{
			"next_services.$.service_id":   entry.ServiceId,
			"next_services.$.service_name": entry.ServiceName,
			"next_services.$.date":         entry.Date,
			"next_services.$.notes":        entry.Notes,
			"updated_at":                   time.Now().UTC(),
		}},
	)
	if err != nil {
		return translate("update next service", err)
	}
	if res.MatchedCount == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

func (s *Store) RemoveNextService(ctx context.Context, customerID string, entryID string) error {
	res, err := s.col(colCustomers).UpdateOne(ctx,
		bson.M{"_id": customerID},
		bson.M{"$pull": bson.M{"next_services": bson.M{"id": entryID}}},
	)
	if err != nil {
		return translate("remove next service", err)
	}
	if res.MatchedCount == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

// ==================== Catalog Store ====================

func (s *Store) CreateProduct(ctx context.Context, p *models.Product) error {
	_, err := s.col(colProducts).InsertOne(ctx, toProductDoc(p))
	return translate("create product", err)
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var d productDoc
	if err := s.col(colProducts).FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, translate("get product", err)
	}
	return fromProductDoc(&d)
}

func (s *Store) CreateService(ctx context.Context, svc *models.Service) error {
	_, err := s.col(colServices).InsertOne(ctx, toServiceDoc(svc))
	return translate("create service", err)
}

func (s *Store) GetService(ctx context.Context, id string) (*models.Service, error) {
	var d serviceDoc
	if err := s.col(colServices).FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, translate("get service", err)
	}
	return fromServiceDoc(&d)
}

// ==================== User Store ====================

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.col(colUsers).InsertOne(ctx, toUserDoc(u))
	return translate("create user", err)
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var d userDoc
	if err := s.col(colUsers).FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, translate("get user", err)
	}
	return fromUserDoc(&d), nil
}

func (s *Store) GetUsers(ctx context.Context, ids []string) ([]*models.User, error) {
	result := make([]*models.User, 0, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	cur, err := s.col(colUsers).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, translate("get users", err)
	}
	var docs []userDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate("get users", err)
	}
	for i := range docs {
		result = append(result, fromUserDoc(&docs[i]))
	}
	return result, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var d userDoc
	if err := s.col(colUsers).FindOne(ctx, bson.M{"email": models.NormalizeEmail(email)}).Decode(&d); err != nil {
		return nil, translate("get user by email", err)
	}
	return fromUserDoc(&d), nil
}

func (s *Store) UpdateUser(ctx context.Context, u *models.User) error {
	res, err := s.col(colUsers).ReplaceOne(ctx, bson.M{"_id": u.ID}, toUserDoc(u))
	if err != nil {
		return translate("update user", err)
	}
	if res.MatchedCount == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

// ==================== Follow-up Store ====================

func (s *Store) CreateFollowUp(ctx context.Context, f *models.CustomerFollowUp) error {
	_, err := s.col(colFollowUps).InsertOne(ctx, toFollowUpDoc(f))
	return translate("create follow-up", err)
}

func (s *Store) GetFollowUp(ctx context.Context, id string) (*models.CustomerFollowUp, error) {
	var d followUpDoc
	if err := s.col(colFollowUps).FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		return nil, translate("get follow-up", err)
	}
	return fromFollowUpDoc(&d)
}

func (s *Store) ListFollowUps(ctx context.Context, filter models.FollowUpFilter) ([]*models.CustomerFollowUp, error) {
	q := bson.M{}
	if filter.InvoiceId != "" {
		q["invoice_id"] = filter.InvoiceId
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, st := range filter.Statuses {
			statuses[i] = string(st)
		}
		q["status"] = bson.M{"$in": statuses}
	}
	if filter.MaxAttempts > 0 {
		q["attempts"] = bson.M{"$lt": filter.MaxAttempts}
	}
	if filter.UpdatedBefore != nil {
		q["updated_at"] = bson.M{"$lt": *filter.UpdatedBefore}
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	if filter.Limit > 0 {
		opts = opts.SetLimit(int64(filter.Limit))
	}
	cur, err := s.col(colFollowUps).Find(ctx, q, opts)
	if err != nil {
		return nil, translate("list follow-ups", err)
	}
	var docs []followUpDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, translate("list follow-ups", err)
	}
	result := make([]*models.CustomerFollowUp, 0, len(docs))
	for i := range docs {
		f, err := fromFollowUpDoc(&docs[i])
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	return result, nil
}

func (s *Store) UpdateFollowUp(ctx context.Context, f *models.CustomerFollowUp) error {
	res, err := s.col(colFollowUps).ReplaceOne(ctx, bson.M{"_id": f.ID}, toFollowUpDoc(f))
	if err != nil {
		return translate("update follow-up", err)
	}
	if res.MatchedCount == 0 {
		return utils.ErrorRecordNotFound
	}
	return nil
}

// ==================== Core ====================

// Migrate creates the indexes, including the unique invoice_number index.
func (s *Store) Migrate(ctx context.Context) error {
	for col, indexes := range migrationIndexes() {
		if len(indexes) == 0 {
			continue
		}
		if _, err := s.col(col).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("store/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}
