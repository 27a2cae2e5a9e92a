package core

import (
	"context"
	"fmt"
	"sync"
)

// fakeAPI is an in-memory DataAccess with a fixed catalog.
type fakeAPI struct {
	mu         sync.Mutex
	catalog    []Product
	categories []Category
	nextID     int

	listErr     error
	categoryErr error
	updateErr   error
	createErr   error

	listCalls [][2]int // offset, limit
	updates   []ProductFields
	creates   []ProductFields

	block   chan struct{} // when set, ListProducts waits on it
	entered chan struct{} // signalled when ListProducts starts

	saveBlock   chan struct{} // when set, UpdateProduct and CreateProduct wait on it
	saveEntered chan struct{} // signalled when a save starts
}

func (f *fakeAPI) waitSave() {
	if f.saveEntered != nil {
		f.saveEntered <- struct{}{}
	}
	if f.saveBlock != nil {
		<-f.saveBlock
	}
}

func newFakeAPI(n int) *fakeAPI {
	f := &fakeAPI{
		categories: []Category{{ID: 4, Name: "Shoes"}, {ID: 1, Name: "Clothes"}},
		nextID:     n + 1,
	}
	for i := 1; i <= n; i++ {
		f.catalog = append(f.catalog, Product{
			ID:       i,
			Title:    fmt.Sprintf("Product %03d", i),
			Price:    Amount(i),
			Category: &Category{ID: 1, Name: "Clothes"},
			Images:   []string{fmt.Sprintf("https://img/%d.png", i)},
		})
	}
	return f
}

func (f *fakeAPI) ListProducts(ctx context.Context, offset, limit int) ([]Product, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, [2]int{offset, limit})
	if f.listErr != nil {
		return nil, f.listErr
	}
	if offset >= len(f.catalog) {
		return []Product{}, nil
	}
	end := min(offset+limit, len(f.catalog))
	out := make([]Product, end-offset)
	copy(out, f.catalog[offset:end])
	return out, nil
}

func (f *fakeAPI) ListCategories(ctx context.Context) ([]Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.categoryErr != nil {
		return nil, f.categoryErr
	}
	return f.categories, nil
}

func (f *fakeAPI) UpdateProduct(ctx context.Context, id int, fields ProductFields) (Product, error) {
	f.waitSave()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, fields)
	if f.updateErr != nil {
		return Product{}, f.updateErr
	}
	for i := range f.catalog {
		if f.catalog[i].ID == id {
			f.catalog[i] = productFrom(id, fields)
			return f.catalog[i], nil
		}
	}
	return Product{}, &NetworkError{Op: "update_product", Status: 404, Message: "not found"}
}

func (f *fakeAPI) CreateProduct(ctx context.Context, fields ProductFields) (Product, error) {
	f.waitSave()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates = append(f.creates, fields)
	if f.createErr != nil {
		return Product{}, f.createErr
	}
	p := productFrom(f.nextID, fields)
	f.nextID++
	f.catalog = append([]Product{p}, f.catalog...)
	return p, nil
}

func (f *fakeAPI) lastList() [2]int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.listCalls) == 0 {
		return [2]int{-1, -1}
	}
	return f.listCalls[len(f.listCalls)-1]
}

func productFrom(id int, fields ProductFields) Product {
	return Product{
		ID:          id,
		Title:       fields.Title,
		Price:       Amount(fields.Price),
		Description: fields.Description,
		Category:    &Category{ID: fields.CategoryID},
		Images:      fields.Images,
	}
}

// recorder is a Presenter that keeps every notification.
type recorder struct {
	mu          sync.Mutex
	projections [][]Product
	validations []string // "flow:field"
	states      []string // "flow:state"
	alerts      []Alert
}

func (r *recorder) OnProjectionChanged(items []Product) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projections = append(r.projections, items)
}

func (r *recorder) OnValidationFailed(flow Flow, field, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validations = append(r.validations, string(flow)+":"+field)
}

func (r *recorder) OnSubmitStateChanged(flow Flow, state SubmitState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, string(flow)+":"+state.String())
}

func (r *recorder) OnAlert(a Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
}

func (r *recorder) lastAlert() Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.alerts) == 0 {
		return Alert{}
	}
	return r.alerts[len(r.alerts)-1]
}

func (r *recorder) lastProjection() []Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.projections) == 0 {
		return nil
	}
	return r.projections[len(r.projections)-1]
}

func validForm() FormInput {
	return FormInput{
		Title:       "New Shirt",
		Price:       "25",
		Description: "A shirt",
		CategoryID:  "1",
		Images:      "https://img/new.png",
	}
}
