package services

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

// ProductResolver сопоставляет предложение маркетплейса с товаром магазина по артикулу
type ProductResolver struct {
	lookup ProductLookup
	memo   *cache.Cache
}

type resolvedProduct struct {
	productID string
	found     bool
}

// NewProductResolver создает резолвер. При cacheTTL > 0 результаты поиска
// запоминаются в памяти процесса на cacheTTL
func NewProductResolver(lookup ProductLookup, cacheTTL time.Duration) *ProductResolver {
	r := &ProductResolver{lookup: lookup}
	if cacheTTL > 0 {
		r.memo = cache.New(cacheTTL, 2*cacheTTL)
	}
	return r
}

// Resolve возвращает идентификатор товара для offerID.
// found=false без ошибки означает, что товара с таким артикулом нет
func (r *ProductResolver) Resolve(ctx context.Context, offerID string) (string, bool, error) {
	if offerID == "" {
		return "", false, nil
	}

	if r.memo != nil {
		if v, ok := r.memo.Get(offerID); ok {
			res := v.(resolvedProduct)
			return res.productID, res.found, nil
		}
	}

	productID, found, err := r.lookup.FindProductIDBySKU(ctx, offerID)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve offer %s: %w", offerID, err)
	}

	if r.memo != nil {
		r.memo.SetDefault(offerID, resolvedProduct{productID: productID, found: found})
	}

	return productID, found, nil
}
