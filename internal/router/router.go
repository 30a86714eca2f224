package router

import (
	"context"

	"posadmin/internal/config"
	"posadmin/internal/handler"
	"posadmin/internal/infra"
	"posadmin/internal/middleware"
	"posadmin/internal/model"
	"posadmin/internal/repository"
	"posadmin/internal/service"
	"posadmin/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the optional collaborators built by the composition root.
// A nil Storage disables image uploads; a nil Dispatcher disables welcome mail.
type Deps struct {
	Storage    *infra.MinIOStorage
	Dispatcher *worker.Dispatcher
}

var (
	staffAdmins = []model.Role{model.RoleSuperAdmin, model.RoleAdmin}
	catalogRead = []model.Role{model.RoleSuperAdmin, model.RoleAdmin, model.RoleCashier}
	userManage  = []model.Role{model.RoleSuperAdmin, model.RoleAdmin, model.RoleCashier}
)

// routes registers handlers under a group and records their names for the
// shift gate.
type routes struct {
	g     *gin.RouterGroup
	names *middleware.RouteNames
}

func (r routes) handle(method, path, name string, h ...gin.HandlerFunc) {
	full := joinPath(r.g.BasePath(), path)
	r.names.Add(method, full, name)
	r.g.Handle(method, path, h...)
}

func (r routes) group(path string, mw ...gin.HandlerFunc) routes {
	return routes{g: r.g.Group(path, mw...), names: r.names}
}

func joinPath(base, rel string) string {
	if rel == "" {
		return base
	}
	if base == "/" {
		base = ""
	}
	return base + rel
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler <- Service <- Repository <- DB/Redis.
// Background helpers stop when ctx is cancelled.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, deps Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	apiLimiter := middleware.NewIPLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	loginLimiter := middleware.NewLoginLimiter()
	apiLimiter.StartPurge(ctx.Done())
	loginLimiter.StartPurge(ctx.Done())

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(apiLimiter))

	// Optional collaborators must reach the services as untyped nil.
	var (
		cache   service.Cache
		storage infra.ObjectStorage
		mail    service.EmailQueue
	)
	if rdb != nil {
		cache = infra.NewRedisCache(rdb)
	}
	if deps.Storage != nil {
		storage = deps.Storage
	}
	if deps.Dispatcher != nil {
		mail = deps.Dispatcher
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	branchRepo := repository.NewBranchRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	shiftRepo := repository.NewShiftRepository(db)

	// Services
	authSvc := service.NewAuthService(userRepo, shiftRepo, cache, cfg)
	userSvc := service.NewUserService(userRepo, branchRepo, mail)
	branchSvc := service.NewBranchService(branchRepo)
	categorySvc := service.NewCategoryService(categoryRepo, cache)
	productSvc := service.NewProductService(productRepo, categoryRepo, categorySvc, storage, cache)
	shiftSvc := service.NewShiftService(shiftRepo, cfg.AppName)

	// Handlers
	authH := handler.NewAuthHandler(authSvc)
	usersH := handler.NewUsersHandler(userSvc)
	branchesH := handler.NewBranchesHandler(branchSvc)
	categoriesH := handler.NewCategoriesHandler(categorySvc)
	productsH := handler.NewProductsHandler(productSvc)
	shiftsH := handler.NewShiftsHandler(shiftSvc)
	pagesH := handler.NewPagesHandler(shiftSvc)

	names := middleware.NewRouteNames()
	root := routes{g: &r.RouterGroup, names: names}

	// Public
	root.handle("GET", "/health", "health", handler.Health(db, rdb, cfg.AppName))
	root.handle("POST", "/auth/login", "auth.login", middleware.LoginRateLimiter(loginLimiter), authH.Login)
	root.handle("POST", "/auth/refresh", "auth.refresh", authH.Refresh)
	root.handle("GET", "/price/:barcode", "price.show", productsH.PriceLookup)

	// Protected
	app := root.group("",
		middleware.JWTAuth(cfg.JWTSecret, authSvc),
		middleware.CurrentAccount(authSvc),
		middleware.ShiftGate(shiftSvc, names),
	)
	app.handle("POST", "/auth/logout", "logout", authH.Logout)
	app.handle("GET", "/dashboard", "dashboard", pagesH.Dashboard)
	app.handle("GET", "/pos", "pos.index", pagesH.POS)

	branches := app.group("/branches", middleware.RequireRole(staffAdmins...))
	branches.handle("GET", "", "branches.index", branchesH.Index)
	branches.handle("GET", "/create", "branches.create", branchesH.Create)
	branches.handle("POST", "", "branches.store", branchesH.Store)
	branches.handle("GET", "/:id/edit", "branches.edit", branchesH.Edit)
	branches.handle("PUT", "/:id", "branches.update", branchesH.Update)
	branches.handle("DELETE", "/:id", "branches.destroy", branchesH.Destroy)

	// The policy narrows what cashiers may see and do.
	users := app.group("/users", middleware.RequireRole(userManage...))
	users.handle("GET", "", "users.index", usersH.Index)
	users.handle("GET", "/create", "users.create", usersH.Create)
	users.handle("POST", "", "users.store", usersH.Store)
	users.handle("GET", "/:id", "users.show", usersH.Show)
	users.handle("GET", "/:id/edit", "users.edit", usersH.Edit)
	users.handle("PUT", "/:id", "users.update", usersH.Update)
	users.handle("DELETE", "/:id", "users.destroy", usersH.Destroy)

	read := middleware.RequireRole(catalogRead...)
	write := middleware.RequireRole(staffAdmins...)

	cats := app.group("/product-categories")
	cats.handle("GET", "", "product-categories.index", read, categoriesH.Index)
	cats.handle("GET", "/create", "product-categories.create", write, categoriesH.Create)
	cats.handle("POST", "", "product-categories.store", write, categoriesH.Store)
	cats.handle("GET", "/:id/edit", "product-categories.edit", write, categoriesH.Edit)
	cats.handle("PUT", "/:id", "product-categories.update", write, categoriesH.Update)
	cats.handle("DELETE", "/:id", "product-categories.destroy", write, categoriesH.Destroy)

	products := app.group("/products")
	products.handle("GET", "", "products.index", read, productsH.Index)
	products.handle("GET", "/create", "products.create", write, productsH.Create)
	products.handle("GET", "/export", "products.export", write, productsH.Export)
	products.handle("POST", "", "products.store", write, productsH.Store)
	products.handle("GET", "/:id/edit", "products.edit", write, productsH.Edit)
	products.handle("PUT", "/:id", "products.update", write, productsH.Update)
	products.handle("DELETE", "/:id", "products.destroy", write, productsH.Destroy)
	products.handle("PATCH", "/:id/stock", "products.stock", write, productsH.AdjustStock)
	products.handle("POST", "/:id/images", "products.images.store", write, productsH.StoreImage)
	products.handle("PATCH", "/:id/images/:image/primary", "products.images.primary", write, productsH.PrimaryImage)
	products.handle("DELETE", "/:id/images/:image", "products.images.destroy", write, productsH.DestroyImage)

	shifts := app.group("/shifts")
	shifts.handle("GET", "/open", "shifts.open", shiftsH.OpenForm)
	shifts.handle("POST", "", "shifts.store", shiftsH.Store)
	shifts.handle("GET", "/close", "shifts.close", shiftsH.CloseForm)
	shifts.handle("PUT", "", "shifts.update", shiftsH.Update)
	shifts.handle("GET", "", "shifts.index", shiftsH.Index)
	shifts.handle("GET", "/:id/report", "shifts.report", shiftsH.Report)

	// Swagger UI, only outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
