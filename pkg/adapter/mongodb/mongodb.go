// Package mongodb provides a gateway whose relations are MongoDB
// collections.
//
// Restrictions become query filters, slices become $in, and the _id field is
// left out of results unless it is projected explicitly.
package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	errs "github.com/matzehuels/relgraph/pkg/errors"
	"github.com/matzehuels/relgraph/pkg/relation"
)

// Gateway owns a client bound to one database.
type Gateway struct {
	client *mongo.Client
	db     *mongo.Database

	*relation.Catalog[*Relation]
}

// Connect dials uri and verifies the connection.
func Connect(ctx context.Context, uri, database string) (*Gateway, error) {
	if err := errs.ValidateURL(uri, "mongodb", "mongodb+srv"); err != nil {
		return nil, err
	}
	if err := errs.ValidateName("database", database); err != nil {
		return nil, err
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidConfig, err, "connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errs.Wrap(errs.ErrCodeNetwork, err, "ping mongodb")
	}
	return New(client, database), nil
}

// New wraps an existing client.
func New(client *mongo.Client, database string) *Gateway {
	g := &Gateway{
		client:  client,
		Catalog: relation.NewCatalog(builtins),
	}
	if client != nil {
		g.db = client.Database(database)
	}
	return g
}

// Close disconnects the client.
func (g *Gateway) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Disconnect(context.Background())
}

// Relation returns a relation over the collection of the same name.
func (g *Gateway) Relation(collection string) *Relation { return g.View(collection, collection) }

// View returns a relation called name over collection.
func (g *Gateway) View(name, collection string) *Relation {
	return &Relation{gw: g, name: name, collection: collection}
}

var builtins = relation.Builtins[*Relation]()
