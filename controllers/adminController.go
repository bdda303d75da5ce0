package controllers

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/Kariqs/sweet-shop/apperror"
	"github.com/Kariqs/sweet-shop/logger"
	"github.com/Kariqs/sweet-shop/services"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

// productRequest is the JSON form of the admin product editor. Price and
// stock accept both numbers and strings.
type productRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       any    `json:"price"`
	Category    string `json:"category" binding:"omitempty,sweetcategory"`
	ImageURL    string `json:"image_url"`
	Stock       any    `json:"stock"`
}

type AdminController struct {
	admin    *services.AdminService
	maxBytes int64
	logg     *logger.Logger
}

func NewAdminController(admin *services.AdminService, maxBytes int64, logg *logger.Logger) *AdminController {
	if logg == nil {
		logg = logger.Nop()
	}
	return &AdminController{admin: admin, maxBytes: maxBytes, logg: logg}
}

func formString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return ""
	}
}

// readProduct parses either a JSON body or a multipart form with an optional
// "image" file part. The returned closer releases the uploaded file.
func (a *AdminController) readProduct(ctx *gin.Context) (services.ProductFields, *services.ImageUpload, func(), error) {
	noop := func() {}
	if ctx.ContentType() != binding.MIMEMultipartPOSTForm {
		var req productRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			return services.ProductFields{}, nil, noop, bindError(err)
		}
		return services.ProductFields{
			Name:        req.Name,
			Description: req.Description,
			Price:       formString(req.Price),
			Category:    req.Category,
			ImageURL:    req.ImageURL,
			Stock:       req.Stock,
		}, nil, noop, nil
	}

	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, a.maxBytes+1<<20)
	fields := services.ProductFields{
		Name:        ctx.PostForm("name"),
		Description: ctx.PostForm("description"),
		Price:       ctx.PostForm("price"),
		Category:    ctx.PostForm("category"),
		ImageURL:    ctx.PostForm("image_url"),
		Stock:       ctx.PostForm("stock"),
	}

	header, err := ctx.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return fields, nil, noop, nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fields, nil, noop, apperror.Validation("Image is too large")
		}
		return fields, nil, noop, apperror.Validation("Invalid form data")
	}
	return openUpload(fields, header)
}

func openUpload(fields services.ProductFields, header *multipart.FileHeader) (services.ProductFields, *services.ImageUpload, func(), error) {
	f, err := header.Open()
	if err != nil {
		return fields, nil, func() {}, apperror.Validation("Unable to read image")
	}
	return fields, &services.ImageUpload{
		Filename: header.Filename,
		Size:     header.Size,
		Body:     f,
	}, func() { _ = f.Close() }, nil
}

func (a *AdminController) GetProducts(ctx *gin.Context) {
	sweets, err := a.admin.ListAllProducts(ctx.Request.Context())
	if err != nil {
		respondWithError(ctx, a.logg, err)
		return
	}
	ctx.JSON(http.StatusOK, toSweetResponses(sweets))
}

func (a *AdminController) CreateProduct(ctx *gin.Context) {
	fields, img, release, err := a.readProduct(ctx)
	defer release()
	if err != nil {
		respondWithError(ctx, a.logg, err)
		return
	}

	sweet, err := a.admin.CreateProduct(ctx.Request.Context(), fields, img)
	if err != nil {
		respondWithError(ctx, a.logg, err)
		return
	}
	ctx.JSON(http.StatusCreated, toSweetResponse(*sweet))
}

func (a *AdminController) UpdateProduct(ctx *gin.Context) {
	fields, img, release, err := a.readProduct(ctx)
	defer release()
	if err != nil {
		respondWithError(ctx, a.logg, err)
		return
	}

	sweet, err := a.admin.UpdateProduct(ctx.Request.Context(), ctx.Param("id"), fields, img)
	if err != nil {
		respondWithError(ctx, a.logg, err)
		return
	}
	ctx.JSON(http.StatusOK, toSweetResponse(*sweet))
}

func (a *AdminController) DeleteProduct(ctx *gin.Context) {
	if err := a.admin.DeleteProduct(ctx.Request.Context(), ctx.Param("id")); err != nil {
		respondWithError(ctx, a.logg, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": msgSweetDeleted})
}
