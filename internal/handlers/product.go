package handlers

import (
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/vitabid/marketplace/internal/middleware"
	"github.com/vitabid/marketplace/internal/service"
	"github.com/vitabid/marketplace/internal/util"
)

type ProductHandler struct {
	Products *service.ProductService
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	product, err := h.Products.Get(c.Request().Context(), uint(id))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	items, total, err := h.Products.List(c.Request().Context(), offset, limit)
	if err != nil {
		return errorJSON(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": items,
		"meta": echo.Map{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	in, files, cleanup, err := productForm(c)
	if err != nil {
		return err
	}
	defer cleanup()

	product, err := h.Products.Create(c.Request().Context(), user.ID, in, files)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusCreated, product)
}

func (h *ProductHandler) PatchProduct(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	in, files, cleanup, err := productForm(c)
	if err != nil {
		return err
	}
	defer cleanup()

	product, err := h.Products.Update(c.Request().Context(), user.ID, uint(id), in, files)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	user := middleware.CurrentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	if err := h.Products.Delete(c.Request().Context(), user.ID, uint(id)); err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "product deleted"})
}

// productForm reads the multipart product form: scalar fields plus an
// "images" file list. The "thumbnail" field names the listing image.
func productForm(c echo.Context) (service.ProductInput, []service.Upload, func(), error) {
	price, err := strconv.ParseFloat(c.FormValue("price"), 64)
	if err != nil {
		return service.ProductInput{}, nil, nil, echo.NewHTTPError(http.StatusBadRequest, "invalid price")
	}
	stock := util.ParseIntDefault(c.FormValue("stock"), 0)

	in := service.ProductInput{
		Name:        c.FormValue("name"),
		Description: c.FormValue("description"),
		Price:       price,
		Stock:       uint(stock),
		Category:    c.FormValue("category"),
		Status:      c.FormValue("status"),
	}
	if in.Name == "" {
		return service.ProductInput{}, nil, nil, echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}

	thumbnail := c.FormValue("thumbnail")

	var opened []multipart.File
	cleanup := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	var files []service.Upload
	if form, err := c.MultipartForm(); err == nil && form != nil {
		for _, fh := range form.File["images"] {
			f, err := fh.Open()
			if err != nil {
				cleanup()
				return service.ProductInput{}, nil, nil, echo.NewHTTPError(http.StatusBadRequest, "cannot read uploaded file")
			}
			opened = append(opened, f)
			files = append(files, service.Upload{
				Name:        fh.Filename,
				Content:     f,
				Size:        fh.Size,
				ContentType: fh.Header.Get("Content-Type"),
				Thumbnail:   fh.Filename == thumbnail,
			})
		}
	}

	return in, files, cleanup, nil
}
