package query

import (
	"context"
	"fmt"

	"github.com/giygas/drugdb/entities"
	"github.com/giygas/drugdb/interfaces"
	"github.com/giygas/drugdb/result"
	"github.com/giygas/drugdb/viewmodel"
)

const (
	ResourceDrugs         = "drugs"
	ResourceDrug          = "drug"
	ResourceManufacturers = "manufacturers"
)

// Compile-time check to ensure DrugQueries implements CacheWarmer
var _ interfaces.CacheWarmer = (*DrugQueries)(nil)

var (
	DrugsKey         = CollectionKey(ResourceDrugs)
	ManufacturersKey = CollectionKey(ResourceManufacturers)
)

// UpdateDrugInput is the payload of the update mutation
type UpdateDrugInput struct {
	ID     int
	Update entities.DrugUpdate
}

// AttachInput links a drug to a manufacturer or a molecule
type AttachInput struct {
	DrugID   int
	TargetID int
}

type ack struct{}

// DrugQueries binds the drug API to the query cache: one read per resource
// and one mutation per write, with their invalidations and notifications
type DrugQueries struct {
	client *Client
	api    interfaces.DrugAPI

	create             *Mutation[entities.DrugCreate, entities.CreateResponse]
	update             *Mutation[UpdateDrugInput, ack]
	remove             *Mutation[int, ack]
	attachManufacturer *Mutation[AttachInput, ack]
	attachMolecule     *Mutation[AttachInput, ack]
	createManufacturer *Mutation[entities.ManufacturerCreate, entities.CreateResponse]
}

func NewDrugQueries(c *Client, api interfaces.DrugAPI) *DrugQueries {
	q := &DrugQueries{client: c, api: api}

	q.create = NewMutation(c, "create_drug", api.CreateDrug,
		MutationOptions[entities.DrugCreate, entities.CreateResponse]{
			Invalidates: func(entities.DrugCreate, entities.CreateResponse) []Key {
				return []Key{DrugsKey}
			},
			SuccessMessage: "Drug created successfully",
			ErrorMessage:   "Failed to create drug",
		})

	q.update = NewMutation(c, "update_drug",
		func(ctx context.Context, in UpdateDrugInput) (ack, error) {
			return ack{}, api.UpdateDrug(ctx, in.ID, in.Update)
		},
		MutationOptions[UpdateDrugInput, ack]{
			Invalidates: func(in UpdateDrugInput, _ ack) []Key {
				return []Key{DrugsKey, ItemKey(ResourceDrug, in.ID)}
			},
			SuccessMessage: "Drug updated successfully",
			ErrorMessage:   "Failed to update drug",
		})

	q.remove = NewMutation(c, "delete_drug",
		func(ctx context.Context, id int) (ack, error) {
			return ack{}, api.DeleteDrug(ctx, id)
		},
		MutationOptions[int, ack]{
			Invalidates: func(id int, _ ack) []Key {
				return []Key{DrugsKey, ItemKey(ResourceDrug, id)}
			},
			SuccessMessage: "Drug deleted successfully",
			ErrorMessage:   "Failed to delete drug",
		})

	q.attachManufacturer = NewMutation(c, "attach_manufacturer",
		func(ctx context.Context, in AttachInput) (ack, error) {
			return ack{}, api.AttachManufacturer(ctx, in.DrugID, in.TargetID)
		},
		MutationOptions[AttachInput, ack]{
			Invalidates: func(in AttachInput, _ ack) []Key {
				return []Key{ItemKey(ResourceDrug, in.DrugID)}
			},
			SuccessMessage: "Manufacturer added to drug",
			ErrorMessage:   "Failed to add manufacturer",
		})

	q.attachMolecule = NewMutation(c, "attach_molecule",
		func(ctx context.Context, in AttachInput) (ack, error) {
			return ack{}, api.AttachMolecule(ctx, in.DrugID, in.TargetID)
		},
		MutationOptions[AttachInput, ack]{
			Invalidates: func(in AttachInput, _ ack) []Key {
				return []Key{DrugsKey, ItemKey(ResourceDrug, in.DrugID)}
			},
			SuccessMessage: "Molecule added to drug",
			ErrorMessage:   "Failed to add molecule",
		})

	q.createManufacturer = NewMutation(c, "create_manufacturer", api.CreateManufacturer,
		MutationOptions[entities.ManufacturerCreate, entities.CreateResponse]{
			Invalidates: func(entities.ManufacturerCreate, entities.CreateResponse) []Key {
				return []Key{ManufacturersKey}
			},
			SuccessMessage: "Manufacturer created successfully",
			ErrorMessage:   "Failed to create manufacturer",
		})

	return q
}

// Client returns the cache these queries read through
func (q *DrugQueries) Client() *Client {
	return q.client
}

func (q *DrugQueries) drugsQuery() Query[[]entities.DrugSummary] {
	return Query[[]entities.DrugSummary]{
		Key:          DrugsKey,
		Fetch:        q.api.ListDrugs,
		ErrorMessage: "Failed to fetch drugs",
	}
}

func (q *DrugQueries) drugQuery() ItemQuery[viewmodel.DrugViewModel] {
	return ItemQuery[viewmodel.DrugViewModel]{
		Resource: ResourceDrug,
		Fetch: func(ctx context.Context, id int) result.Result[viewmodel.DrugViewModel] {
			return result.Map(q.api.GetDrug(ctx, id), viewmodel.ToViewModel)
		},
		ErrorMessage: "Failed to fetch drug details",
	}
}

func (q *DrugQueries) manufacturersQuery() Query[[]entities.Manufacturer] {
	return Query[[]entities.Manufacturer]{
		Key:          ManufacturersKey,
		Fetch:        q.api.ListManufacturers,
		ErrorMessage: "Failed to fetch manufacturers",
	}
}

// Drugs reads the drug list
func (q *DrugQueries) Drugs(ctx context.Context) State[[]entities.DrugSummary] {
	return UseCollection(ctx, q.client, q.drugsQuery())
}

// Drug reads one drug, mapped for display. id <= 0 yields the idle state.
func (q *DrugQueries) Drug(ctx context.Context, id int) State[viewmodel.DrugViewModel] {
	return UseItem(ctx, q.client, id, q.drugQuery())
}

// Manufacturers reads the manufacturer list
func (q *DrugQueries) Manufacturers(ctx context.Context) State[[]entities.Manufacturer] {
	return UseCollection(ctx, q.client, q.manufacturersQuery())
}

// SubscribeDrugs follows the drug list
func (q *DrugQueries) SubscribeDrugs(fn func(State[[]entities.DrugSummary])) func() {
	return Subscribe(q.client, DrugsKey, fn)
}

// SubscribeDrug follows one drug
func (q *DrugQueries) SubscribeDrug(id int, fn func(State[viewmodel.DrugViewModel])) func() {
	return Subscribe(q.client, ItemKey(ResourceDrug, id), fn)
}

func (q *DrugQueries) CreateDrug(ctx context.Context, drug entities.DrugCreate) (entities.CreateResponse, error) {
	return q.create.Mutate(ctx, drug)
}

func (q *DrugQueries) UpdateDrug(ctx context.Context, id int, update entities.DrugUpdate) error {
	_, err := q.update.Mutate(ctx, UpdateDrugInput{ID: id, Update: update})
	return err
}

func (q *DrugQueries) DeleteDrug(ctx context.Context, id int) error {
	_, err := q.remove.Mutate(ctx, id)
	return err
}

func (q *DrugQueries) AttachManufacturer(ctx context.Context, drugID, manufacturerID int) error {
	_, err := q.attachManufacturer.Mutate(ctx, AttachInput{DrugID: drugID, TargetID: manufacturerID})
	return err
}

func (q *DrugQueries) AttachMolecule(ctx context.Context, drugID, moleculeID int) error {
	_, err := q.attachMolecule.Mutate(ctx, AttachInput{DrugID: drugID, TargetID: moleculeID})
	return err
}

func (q *DrugQueries) CreateManufacturer(ctx context.Context, manufacturer entities.ManufacturerCreate) (entities.CreateResponse, error) {
	return q.createManufacturer.Mutate(ctx, manufacturer)
}

// Pending lists the mutations currently in flight
func (q *DrugQueries) Pending() []string {
	var names []string
	for _, m := range []interface {
		IsPending() bool
		Name() string
	}{q.create, q.update, q.remove, q.attachManufacturer, q.attachMolecule, q.createManufacturer} {
		if m.IsPending() {
			names = append(names, m.Name())
		}
	}
	return names
}

// Refresh invalidates and re-reads both collections, returning what was read
func (q *DrugQueries) Refresh(ctx context.Context) (State[[]entities.DrugSummary], State[[]entities.Manufacturer]) {
	q.client.Invalidate(DrugsKey, ManufacturersKey)
	return q.Drugs(ctx), q.Manufacturers(ctx)
}

// Warm invalidates and re-reads both collections. Serving fallback data is
// reported as degraded, not as an error.
func (q *DrugQueries) Warm(ctx context.Context) (interfaces.RefreshStats, error) {
	drugs, manufacturers := q.Refresh(ctx)

	stats := interfaces.RefreshStats{
		DrugCount:         len(drugs.Data),
		ManufacturerCount: len(manufacturers.Data),
		Degraded:          drugs.Degraded || manufacturers.Degraded,
	}
	switch {
	case drugs.Cause != nil:
		stats.Cause = drugs.Cause
	case manufacturers.Cause != nil:
		stats.Cause = manufacturers.Cause
	}

	if drugs.IsError() {
		return stats, fmt.Errorf("failed to refresh drugs: %w", drugs.Err)
	}
	if manufacturers.IsError() {
		return stats, fmt.Errorf("failed to refresh manufacturers: %w", manufacturers.Err)
	}
	return stats, nil
}

// Prune drops cache entries nobody read for a while
func (q *DrugQueries) Prune() int {
	return q.client.Prune()
}
