// Copyright (c) 2025 BVK Chaitanya

package server

import (
	"context"
	"net/http"

	"github.com/bvk/salesd/api"
	"github.com/bvk/salesd/catalog"
	"github.com/bvk/salesd/discount"
	"github.com/bvk/salesd/fault"
	"github.com/bvk/salesd/gobs"
	"github.com/bvk/salesd/order"
	"github.com/bvkgo/kv"
	"github.com/shopspring/decimal"
)

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	var cs []*gobs.Category
	list := func(ctx context.Context, rd kv.Reader) error {
		vs, err := catalog.ListCategories(ctx, rd)
		if err != nil {
			return err
		}
		cs = vs
		return nil
	}
	if err := kv.WithReader(r.Context(), s.db, list); err != nil {
		writeError(w, err)
		return
	}
	out := make([]*api.Category, 0, len(cs))
	for _, c := range cs {
		out = append(out, toAPICategory(c))
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request, _ *gobs.User) {
	req, err := decode[api.CreateCategoryRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}
	var c *gobs.Category
	create := func(ctx context.Context, rw kv.ReadWriter) error {
		v, err := catalog.CreateCategory(ctx, rw, req.Name)
		if err != nil {
			return err
		}
		c = v
		return nil
	}
	if err := s.withReadWriter(r.Context(), create); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, toAPICategory(c))
}

func parseListProductsQuery(r *http.Request) (*catalog.ListFilter, error) {
	q := r.URL.Query()
	filter := &catalog.ListFilter{
		Category:  q.Get("category"),
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
	}
	if v := q.Get("min_price"); len(v) != 0 {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, errBadQuery("min_price")
		}
		filter.MinPrice = &d
	}
	if v := q.Get("max_price"); len(v) != 0 {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return nil, errBadQuery("max_price")
		}
		filter.MaxPrice = &d
	}
	switch filter.SortBy {
	case "", "price", "name":
	default:
		return nil, errBadQuery("sort_by")
	}
	switch filter.SortOrder {
	case "", "asc", "desc":
	default:
		return nil, errBadQuery("sort_order")
	}
	return filter, nil
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListProductsQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var out []*api.Product
	list := func(ctx context.Context, rd kv.Reader) error {
		listed, err := catalog.ListProducts(ctx, rd, filter)
		if err != nil {
			return err
		}
		out = make([]*api.Product, 0, len(listed))
		for _, lp := range listed {
			out = append(out, toAPIProduct(lp.Product, lp.Category, lp, nil))
		}
		return nil
	}
	if err := kv.WithReader(r.Context(), s.db, list); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var out *api.Product
	get := func(ctx context.Context, rd kv.Reader) error {
		p, err := catalog.GetProduct(ctx, rd, id)
		if err != nil {
			return err
		}
		variants, err := catalog.ListVariants(ctx, rd, p.ID)
		if err != nil {
			return err
		}
		minPrice, err := catalog.MinVariantPrice(ctx, rd, p.ID)
		if err != nil {
			return err
		}
		var category string
		if len(p.CategoryID) != 0 {
			c, err := catalog.GetCategory(ctx, rd, p.CategoryID)
			if err != nil {
				return err
			}
			category = c.Name
		}
		out = toAPIProduct(p, category, nil, variants)
		out.MinVarPrice = minPrice
		return nil
	}
	if err := kv.WithReader(r.Context(), s.db, get); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request, _ *gobs.User) {
	req, err := decode[api.CreateProductRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}

	args := &catalog.CreateProductArgs{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		IsActive:    req.IsActive == nil || *req.IsActive,
		Price:       req.Price,
	}

	var out *api.Product
	create := func(ctx context.Context, rw kv.ReadWriter) error {
		p, err := catalog.CreateProduct(ctx, rw, args)
		if err != nil {
			return err
		}
		variants, err := catalog.ListVariants(ctx, rw, p.ID)
		if err != nil {
			return err
		}
		minPrice, err := catalog.MinVariantPrice(ctx, rw, p.ID)
		if err != nil {
			return err
		}
		out = toAPIProduct(p, req.Category, nil, variants)
		out.MinVarPrice = minPrice
		return nil
	}
	if err := s.withReadWriter(r.Context(), create); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, out)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request, _ *gobs.User) {
	id := r.PathValue("id")
	req, err := decode[api.UpdateProductRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}

	args := &catalog.UpdateProductArgs{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		IsActive:    req.IsActive,
		Price:       req.Price,
	}

	var out *api.Product
	update := func(ctx context.Context, rw kv.ReadWriter) error {
		p, err := catalog.UpdateProduct(ctx, rw, id, args)
		if err != nil {
			return err
		}
		variants, err := catalog.ListVariants(ctx, rw, p.ID)
		if err != nil {
			return err
		}
		minPrice, err := catalog.MinVariantPrice(ctx, rw, p.ID)
		if err != nil {
			return err
		}
		var category string
		if len(p.CategoryID) != 0 {
			c, err := catalog.GetCategory(ctx, rw, p.CategoryID)
			if err != nil {
				return err
			}
			category = c.Name
		}
		out = toAPIProduct(p, category, nil, variants)
		out.MinVarPrice = minPrice
		return nil
	}
	if err := s.withReadWriter(r.Context(), update); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request, _ *gobs.User) {
	id := r.PathValue("id")

	del := func(ctx context.Context, rw kv.ReadWriter) error {
		inUse, err := order.ProductInUse(ctx, rw, id)
		if err != nil {
			return err
		}
		if inUse {
			return fault.Conflictf("product is referenced by existing orders")
		}
		return catalog.DeleteProduct(ctx, rw, id)
	}
	if err := s.withReadWriter(r.Context(), del); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (s *Server) handleCreateVariant(w http.ResponseWriter, r *http.Request, _ *gobs.User) {
	productID := r.PathValue("id")
	req, err := decode[api.CreateVariantRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}

	args := &catalog.CreateVariantArgs{
		SKU:      req.SKU,
		Size:     req.Size,
		Color:    req.Color,
		Price:    req.Price,
		Stock:    req.Stock,
		IsActive: req.IsActive == nil || *req.IsActive,
	}

	var v *gobs.ProductVariant
	create := func(ctx context.Context, rw kv.ReadWriter) error {
		out, err := catalog.CreateVariant(ctx, rw, productID, args)
		if err != nil {
			return err
		}
		v = out
		return nil
	}
	if err := s.withReadWriter(r.Context(), create); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, toAPIVariant(v))
}

func (s *Server) handleAddVariantStock(w http.ResponseWriter, r *http.Request, _ *gobs.User) {
	id := r.PathValue("id")
	req, err := decode[api.AddVariantStockRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}

	var v *gobs.ProductVariant
	add := func(ctx context.Context, rw kv.ReadWriter) error {
		out, err := catalog.AddStock(ctx, rw, id, req.Quantity)
		if err != nil {
			return err
		}
		v = out
		return nil
	}
	if err := s.withReadWriter(r.Context(), add); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toAPIVariant(v))
}

func discountArgs(req *api.CreateDiscountRequest) *discount.CreateArgs {
	args := &discount.CreateArgs{
		Name:       req.Name,
		Type:       req.Type,
		Scope:      req.Scope,
		ScopeValue: req.ScopeValue,
		ProductIDs: req.ProductIDs,
		Value:      req.Value,
		IsActive:   req.IsActive == nil || *req.IsActive,
	}
	if req.StartsAt != nil {
		args.StartsAt = req.StartsAt.UTC()
	}
	if req.EndsAt != nil {
		args.EndsAt = req.EndsAt.UTC()
	}
	return args
}

func (s *Server) handleListDiscounts(w http.ResponseWriter, r *http.Request, _ *gobs.User) {
	var ds []*gobs.Discount
	list := func(ctx context.Context, rd kv.Reader) error {
		vs, err := discount.List(ctx, rd)
		if err != nil {
			return err
		}
		ds = vs
		return nil
	}
	if err := kv.WithReader(r.Context(), s.db, list); err != nil {
		writeError(w, err)
		return
	}
	out := make([]*api.Discount, 0, len(ds))
	for _, d := range ds {
		out = append(out, toAPIDiscount(d))
	}
	writeData(w, http.StatusOK, out)
}

func (s *Server) handleCreateDiscount(w http.ResponseWriter, r *http.Request, _ *gobs.User) {
	req, err := decode[api.CreateDiscountRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}
	var d *gobs.Discount
	create := func(ctx context.Context, rw kv.ReadWriter) error {
		v, err := discount.Create(ctx, rw, discountArgs(req))
		if err != nil {
			return err
		}
		d = v
		return nil
	}
	if err := s.withReadWriter(r.Context(), create); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, toAPIDiscount(d))
}

func (s *Server) handleUpdateDiscount(w http.ResponseWriter, r *http.Request, _ *gobs.User) {
	id := r.PathValue("id")
	req, err := decode[api.CreateDiscountRequest](r)
	if err != nil {
		writeError(w, err)
		return
	}
	var d *gobs.Discount
	update := func(ctx context.Context, rw kv.ReadWriter) error {
		v, err := discount.Update(ctx, rw, id, discountArgs(req))
		if err != nil {
			return err
		}
		d = v
		return nil
	}
	if err := s.withReadWriter(r.Context(), update); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, toAPIDiscount(d))
}

func (s *Server) handleDeleteDiscount(w http.ResponseWriter, r *http.Request, _ *gobs.User) {
	id := r.PathValue("id")
	del := func(ctx context.Context, rw kv.ReadWriter) error {
		return discount.Delete(ctx, rw, id)
	}
	if err := s.withReadWriter(r.Context(), del); err != nil {
		writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, map[string]bool{"deleted": true})
}
