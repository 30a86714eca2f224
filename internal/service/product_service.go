package service

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"path"
	"strings"
	"time"

	"posadmin/internal/dto"
	"posadmin/internal/infra"
	"posadmin/internal/model"
	"posadmin/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

const (
	pricePrefix = "price:"
	priceTTL    = 4 * time.Hour

	barcodePrefix      = "PROD"
	maxBarcodeAttempts = 20
)

// ErrStorageDisabled is returned by image operations when no object store is configured.
var ErrStorageDisabled = errors.New("image storage is not configured")

// ImageUpload is one file received from a multipart form.
type ImageUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

type ProductService interface {
	Index(ctx context.Context, filter dto.ProductFilter) (*dto.ProductIndexProps, error)
	CreateForm(ctx context.Context) (*dto.ProductFormProps, error)
	Create(ctx context.Context, req dto.ProductRequest) (*dto.ProductResponse, error)
	EditForm(ctx context.Context, id uuid.UUID) (*dto.ProductFormProps, error)
	Update(ctx context.Context, id uuid.UUID, req dto.ProductRequest) (*dto.ProductResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AdjustStock(ctx context.Context, id uuid.UUID, quantity int) (*dto.ProductResponse, error)
	// Export builds the full catalog as a workbook. The caller closes it.
	Export(ctx context.Context) (*excelize.File, string, error)
	PriceLookup(ctx context.Context, barcode string) (*dto.PriceLookupResponse, error)

	AddImage(ctx context.Context, id uuid.UUID, up ImageUpload) (*dto.ProductImageResponse, error)
	MakePrimaryImage(ctx context.Context, id, imageID uuid.UUID) error
	DeleteImage(ctx context.Context, id, imageID uuid.UUID) error
}

type productService struct {
	repo       repository.ProductRepository
	categories CategoryService
	catRepo    repository.CategoryRepository
	storage    infra.ObjectStorage
	cache      Cache
}

// NewProductService wires the catalog service. storage and cache may be nil.
func NewProductService(
	repo repository.ProductRepository,
	catRepo repository.CategoryRepository,
	categories CategoryService,
	storage infra.ObjectStorage,
	cache Cache,
) ProductService {
	return &productService{repo: repo, catRepo: catRepo, categories: categories, storage: storage, cache: cache}
}

func mapProduct(p *model.Product) dto.ProductResponse {
	cats := make([]dto.CategoryOption, 0, len(p.Categories))
	for _, c := range p.Categories {
		cats = append(cats, dto.CategoryOption{ID: c.ID, Name: c.Name, ParentID: c.ParentID})
	}
	imgs := make([]dto.ProductImageResponse, 0, len(p.Images))
	for _, img := range p.Images {
		imgs = append(imgs, mapImage(img))
	}
	return dto.ProductResponse{
		ID:                p.ID,
		SKU:               p.SKU,
		Barcode:           p.Barcode,
		Name:              p.Name,
		Description:       p.Description,
		BuyingPrice:       p.BuyingPrice,
		SellingPrice:      p.SellingPrice,
		CurrentStock:      p.CurrentStock,
		UnitOfMeasurement: p.UnitOfMeasurement,
		IsActive:          p.IsActive,
		SortOrder:         p.SortOrder,
		ProfitMargin:      p.ProfitMargin(),
		ProfitPerUnit:     p.ProfitPerUnit(),
		StockValue:        p.StockValue(),
		LowStock:          p.LowStock(),
		Categories:        cats,
		Images:            imgs,
		CreatedAt:         p.CreatedAt,
	}
}

func mapImage(img model.ProductImage) dto.ProductImageResponse {
	return dto.ProductImageResponse{ID: img.ID, Path: img.Path, IsPrimary: img.IsPrimary, SortOrder: img.SortOrder}
}

func (s *productService) Index(ctx context.Context, filter dto.ProductFilter) (*dto.ProductIndexProps, error) {
	list, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	rows := make([]dto.ProductResponse, 0, len(list))
	for i := range list {
		rows = append(rows, mapProduct(&list[i]))
	}
	page, limit, _ := filter.Normalize()
	return &dto.ProductIndexProps{Products: dto.NewPaginated(rows, total, page, limit), Filters: filter}, nil
}

func (s *productService) CreateForm(ctx context.Context) (*dto.ProductFormProps, error) {
	opts, err := s.categories.Options(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.ProductFormProps{Categories: opts}, nil
}

func (s *productService) EditForm(ctx context.Context, id uuid.UUID) (*dto.ProductFormProps, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	opts, err := s.categories.Options(ctx)
	if err != nil {
		return nil, err
	}
	resp := mapProduct(p)
	return &dto.ProductFormProps{Product: &resp, Categories: opts}, nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

// checkProduct validates uniqueness and category references before any write.
func (s *productService) checkProduct(ctx context.Context, req dto.ProductRequest, self *uuid.UUID) error {
	fields := map[string]string{}

	if sku := trimmed(req.SKU); sku != nil {
		taken, err := s.repo.SKUTaken(ctx, *sku, self)
		if err != nil {
			return err
		}
		if taken {
			fields["sku"] = "The sku has already been taken."
		}
	}
	if bc := trimmed(req.Barcode); bc != nil {
		taken, err := s.repo.BarcodeTaken(ctx, *bc, self)
		if err != nil {
			return err
		}
		if taken {
			fields["barcode"] = "The barcode has already been taken."
		}
	}
	if ids := uniqueIDs(req.Categories); len(ids) > 0 {
		n, err := s.catRepo.CountExisting(ctx, ids)
		if err != nil {
			return err
		}
		if n != int64(len(ids)) {
			fields["categories"] = "One or more selected categories are invalid."
		}
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func applyProduct(p *model.Product, req dto.ProductRequest) {
	p.SKU = trimmed(req.SKU)
	p.Barcode = trimmed(req.Barcode)
	p.Name = strings.TrimSpace(req.Name)
	p.Description = req.Description
	if req.BuyingPrice != nil {
		bp := req.BuyingPrice.Round(2)
		p.BuyingPrice = &bp
	} else {
		p.BuyingPrice = nil
	}
	if req.SellingPrice != nil {
		p.SellingPrice = req.SellingPrice.Round(2)
	}
	p.CurrentStock = req.CurrentStock
	if u := strings.TrimSpace(req.UnitOfMeasurement); u != "" {
		p.UnitOfMeasurement = u
	} else if p.UnitOfMeasurement == "" {
		p.UnitOfMeasurement = "pcs"
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	p.SortOrder = req.SortOrder
}

// generateBarcode returns PROD followed by eight random digits not yet in use.
func (s *productService) generateBarcode(ctx context.Context, tx repository.ProductRepository) (string, error) {
	limit := big.NewInt(100_000_000)
	for i := 0; i < maxBarcodeAttempts; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		code := fmt.Sprintf("%s%08d", barcodePrefix, n.Int64())
		taken, err := tx.BarcodeTaken(ctx, code, nil)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("no free barcode after %d attempts", maxBarcodeAttempts)
}

func (s *productService) Create(ctx context.Context, req dto.ProductRequest) (*dto.ProductResponse, error) {
	if err := s.checkProduct(ctx, req, nil); err != nil {
		return nil, err
	}

	p := &model.Product{IsActive: true}
	applyProduct(p, req)

	err := s.repo.Transaction(ctx, func(tx repository.ProductRepository) error {
		if p.Barcode == nil && req.GenerateBarcode {
			code, err := s.generateBarcode(ctx, tx)
			if err != nil {
				return err
			}
			p.Barcode = &code
		}
		if err := tx.Create(ctx, p); err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		if err := tx.ReplaceCategories(ctx, p.ID, req.Categories); err != nil {
			return fmt.Errorf("sync categories: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().Str("product_id", p.ID.String()).Str("name", p.Name).Msg("product created")
	return s.reload(ctx, p.ID)
}

func (s *productService) reload(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	resp := mapProduct(p)
	return &resp, nil
}

func (s *productService) Update(ctx context.Context, id uuid.UUID, req dto.ProductRequest) (*dto.ProductResponse, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	if err := s.checkProduct(ctx, req, &p.ID); err != nil {
		return nil, err
	}

	oldBarcode := p.Barcode
	applyProduct(p, req)
	p.Categories, p.Images = nil, nil

	err = s.repo.Transaction(ctx, func(tx repository.ProductRepository) error {
		if p.Barcode == nil && req.GenerateBarcode {
			code, err := s.generateBarcode(ctx, tx)
			if err != nil {
				return err
			}
			p.Barcode = &code
		}
		if err := tx.Update(ctx, p); err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		if err := tx.ReplaceCategories(ctx, p.ID, req.Categories); err != nil {
			return fmt.Errorf("sync categories: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.invalidatePrice(ctx, oldBarcode, p.Barcode)
	return s.reload(ctx, p.ID)
}

func (s *productService) Delete(ctx context.Context, id uuid.UUID) error {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return notFound(err)
	}
	err = s.repo.Transaction(ctx, func(tx repository.ProductRepository) error {
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return notFound(err)
	}

	if s.storage != nil {
		for _, img := range p.Images {
			if err := s.storage.Remove(ctx, img.Path); err != nil {
				log.Warn().Err(err).Str("key", img.Path).Msg("product image object not removed")
			}
		}
	}
	s.invalidatePrice(ctx, p.Barcode)
	log.Info().Str("product_id", id.String()).Msg("product deleted")
	return nil
}

func (s *productService) AdjustStock(ctx context.Context, id uuid.UUID, quantity int) (*dto.ProductResponse, error) {
	level, err := s.repo.AdjustStock(ctx, id, quantity)
	if errors.Is(err, repository.ErrInsufficientStock) {
		return nil, ruleError("Insufficient stock for this adjustment.")
	}
	if err != nil {
		return nil, notFound(err)
	}
	log.Info().Str("product_id", id.String()).Int("delta", quantity).Int("stock", level).Msg("stock adjusted")

	resp, err := s.reload(ctx, id)
	if err != nil {
		return nil, err
	}
	s.invalidatePrice(ctx, resp.Barcode)
	return resp, nil
}

func (s *productService) invalidatePrice(ctx context.Context, barcodes ...*string) {
	if s.cache == nil {
		return
	}
	var keys []string
	for _, bc := range barcodes {
		if bc != nil && *bc != "" {
			keys = append(keys, pricePrefix+*bc)
		}
	}
	if len(keys) == 0 {
		return
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		log.Warn().Err(err).Msg("price cache invalidation failed")
	}
}

func (s *productService) PriceLookup(ctx context.Context, barcode string) (*dto.PriceLookupResponse, error) {
	barcode = strings.TrimSpace(barcode)
	key := pricePrefix + barcode

	if s.cache != nil {
		if b, err := s.cache.Get(ctx, key); err == nil {
			var resp dto.PriceLookupResponse
			if json.Unmarshal(b, &resp) == nil {
				return &resp, nil
			}
		}
	}

	p, err := s.repo.FindByBarcode(ctx, barcode)
	if err != nil {
		return nil, notFound(err)
	}
	names := make([]string, 0, len(p.Categories))
	for _, c := range p.Categories {
		names = append(names, c.Name)
	}
	resp := &dto.PriceLookupResponse{
		Name:              p.Name,
		SellingPrice:      p.SellingPrice,
		CurrentStock:      p.CurrentStock,
		UnitOfMeasurement: p.UnitOfMeasurement,
		Categories:        names,
	}

	if s.cache != nil {
		if b, err := json.Marshal(resp); err == nil {
			if err := s.cache.Set(ctx, key, b, priceTTL); err != nil {
				log.Warn().Err(err).Str("barcode", barcode).Msg("price cache set failed")
			}
		}
	}
	return resp, nil
}

var exportHeaders = []string{
	"SKU", "Barcode", "Name", "Categories", "Buying price", "Selling price",
	"Profit margin %", "Stock", "Unit", "Stock value", "Active",
}

func (s *productService) Export(ctx context.Context) (*excelize.File, string, error) {
	products, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("list products: %w", err)
	}

	f := excelize.NewFile()
	sheet := "Products"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		f.Close()
		return nil, "", err
	}

	bold, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
	})
	for i, h := range exportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, bold)
	}

	for i := range products {
		p := &products[i]
		row := i + 2
		names := make([]string, 0, len(p.Categories))
		for _, c := range p.Categories {
			names = append(names, c.Name)
		}
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), deref(p.SKU))
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), deref(p.Barcode))
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), p.Name)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), strings.Join(names, ", "))
		if p.BuyingPrice != nil {
			f.SetCellValue(sheet, fmt.Sprintf("E%d", row), p.BuyingPrice.InexactFloat64())
		}
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), p.SellingPrice.InexactFloat64())
		if m := p.ProfitMargin(); m != nil {
			f.SetCellValue(sheet, fmt.Sprintf("G%d", row), m.InexactFloat64())
		}
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), p.CurrentStock)
		f.SetCellValue(sheet, fmt.Sprintf("I%d", row), p.UnitOfMeasurement)
		if v := p.StockValue(); v != nil {
			f.SetCellValue(sheet, fmt.Sprintf("J%d", row), v.InexactFloat64())
		}
		f.SetCellValue(sheet, fmt.Sprintf("K%d", row), p.IsActive)
	}

	widths := []float64{14, 16, 30, 28, 12, 12, 14, 8, 8, 12, 8}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	filename := fmt.Sprintf("products_%s.xlsx", time.Now().Format("20060102_150405"))
	return f, filename, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (s *productService) AddImage(ctx context.Context, id uuid.UUID, up ImageUpload) (*dto.ProductImageResponse, error) {
	if s.storage == nil {
		return nil, ErrStorageDisabled
	}
	if !strings.HasPrefix(up.ContentType, "image/") {
		return nil, fieldError("image", "The image must be an image file.")
	}
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return nil, notFound(err)
	}
	existing, err := s.repo.ListImages(ctx, id)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("products/%s/%s%s", id, uuid.NewString(), strings.ToLower(path.Ext(up.Filename)))
	if err := s.storage.Put(ctx, key, up.Body, up.Size, up.ContentType); err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}

	img := &model.ProductImage{
		ProductID: id,
		Path:      key,
		IsPrimary: len(existing) == 0,
		SortOrder: len(existing),
	}
	if err := s.repo.CreateImage(ctx, img); err != nil {
		if rmErr := s.storage.Remove(ctx, key); rmErr != nil {
			log.Warn().Err(rmErr).Str("key", key).Msg("orphaned image object")
		}
		return nil, err
	}
	resp := mapImage(*img)
	return &resp, nil
}

func (s *productService) MakePrimaryImage(ctx context.Context, id, imageID uuid.UUID) error {
	if _, err := s.repo.FindImage(ctx, id, imageID); err != nil {
		return notFound(err)
	}
	return s.repo.Transaction(ctx, func(tx repository.ProductRepository) error {
		return tx.SetPrimaryImage(ctx, id, imageID)
	})
}

func (s *productService) DeleteImage(ctx context.Context, id, imageID uuid.UUID) error {
	img, err := s.repo.FindImage(ctx, id, imageID)
	if err != nil {
		return notFound(err)
	}
	if err := s.repo.DeleteImage(ctx, imageID); err != nil {
		return err
	}
	if s.storage != nil {
		if err := s.storage.Remove(ctx, img.Path); err != nil {
			log.Warn().Err(err).Str("key", img.Path).Msg("product image object not removed")
		}
	}
	// promote the next image when the primary one goes away
	if img.IsPrimary {
		rest, err := s.repo.ListImages(ctx, id)
		if err != nil {
			return err
		}
		if len(rest) > 0 {
			return s.repo.SetPrimaryImage(ctx, id, rest[0].ID)
		}
	}
	return nil
}
