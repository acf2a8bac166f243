package echoapi

import (
	"context"
	"net/http"
	"reflect"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ecole/core"
	"github.com/trezcool/ecole/core/school"
)

// resourceApi exposes the CRUD operations of one school record type.
// Reads are open to any authenticated user, writes go through writeMws.
type resourceApi[T any] struct {
	create  func(context.Context, T) (T, error)
	get     func(context.Context, int) (T, error)
	query   func(context.Context, *school.QueryFilter, []core.DBOrdering) ([]T, error)
	update  func(context.Context, int, T) (T, error)
	destroy func(context.Context, int) error
}

func (api resourceApi[T]) register(g *echo.Group, prefix string, writeMws ...echo.MiddlewareFunc) *echo.Group {
	rg := g.Group(prefix)
	rg.GET("", api.list)
	rg.POST("", api.createHandler, writeMws...)
	rg.GET("/:id", api.retrieve)
	rg.PUT("/:id", api.updateHandler, writeMws...)
	rg.DELETE("/:id", api.destroyHandler, writeMws...)
	return rg
}

func typeName[T any]() string {
	var obj T
	return reflect.TypeOf(obj).Name()
}

func (api resourceApi[T]) list(ctx echo.Context) error {
	filter := new(school.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []T{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	objs, err := api.query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrapf(err, "querying %s", typeName[T]())
	}
	if objs == nil {
		objs = []T{}
	}
	return ctx.JSON(http.StatusOK, objs)
}

func (api resourceApi[T]) createHandler(ctx echo.Context) error {
	var data T
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrapf(err, "binding to %s", typeName[T]())
	}
	obj, err := api.create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrapf(err, "creating %s", typeName[T]())
	}
	return ctx.JSON(http.StatusCreated, obj)
}

func (api resourceApi[T]) retrieve(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	obj, err := api.get(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrapf(err, "finding %s by ID", typeName[T]())
	}
	return ctx.JSON(http.StatusOK, obj)
}

func (api resourceApi[T]) updateHandler(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data T
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrapf(err, "binding to %s", typeName[T]())
	}
	obj, err := api.update(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrapf(err, "updating %s", typeName[T]())
	}
	return ctx.JSON(http.StatusOK, obj)
}

func (api resourceApi[T]) destroyHandler(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	if err = api.destroy(ctx.Request().Context(), id); err != nil {
		return errors.Wrapf(err, "deleting %s", typeName[T]())
	}
	return ctx.NoContent(http.StatusNoContent)
}

type schoolApi struct {
	svc *school.Service
}

// registerSchoolAPI mounts the school records on ag, an authenticated group.
func registerSchoolAPI(ag *echo.Group, deps ServerDeps) {
	api := schoolApi{svc: deps.SchoolSvc}
	svc := deps.SchoolSvc

	resourceApi[school.Student]{
		create: svc.CreateStudent, get: svc.GetStudent, query: svc.QueryStudents,
		update: svc.UpdateStudent, destroy: svc.DeleteStudent,
	}.register(ag, "/students", adminMiddleware())

	classes := resourceApi[school.Class]{
		create: svc.CreateClass, get: svc.GetClass, query: svc.QueryClasses,
		update: svc.UpdateClass, destroy: svc.DeleteClass,
	}.register(ag, "/classes", adminMiddleware())
	classes.GET("/:id/timetable", api.classTimetable)

	resourceApi[school.Teacher]{
		create: svc.CreateTeacher, get: svc.GetTeacher, query: svc.QueryTeachers,
		update: svc.UpdateTeacher, destroy: svc.DeleteTeacher,
	}.register(ag, "/teachers", adminMiddleware())

	resourceApi[school.Subject]{
		create: svc.CreateSubject, get: svc.GetSubject, query: svc.QuerySubjects,
		update: svc.UpdateSubject, destroy: svc.DeleteSubject,
	}.register(ag, "/subjects", adminMiddleware())

	resourceApi[school.Enrollment]{
		create: svc.CreateEnrollment, get: svc.GetEnrollment, query: svc.QueryEnrollments,
		update: svc.UpdateEnrollment, destroy: svc.DeleteEnrollment,
	}.register(ag, "/enrollments", adminMiddleware())

	// teachers grade their subjects
	results := resourceApi[school.Result]{
		create: svc.CreateResult, get: svc.GetResult, query: svc.QueryResults,
		update: svc.UpdateResult, destroy: svc.DeleteResult,
	}.register(ag, "/results", staffMiddleware())
	results.POST("/batch", api.saveResults, staffMiddleware())

	fees := resourceApi[school.SchoolFee]{
		create: svc.CreateFee, get: svc.GetFee, query: svc.QueryFees,
		update: svc.UpdateFee, destroy: svc.DeleteFee,
	}.register(ag, "/fees", adminMiddleware())
	fees.POST("/:id/payments", api.recordPayment, adminMiddleware())

	resourceApi[school.Room]{
		create: svc.CreateRoom, get: svc.GetRoom, query: svc.QueryRooms,
		update: svc.UpdateRoom, destroy: svc.DeleteRoom,
	}.register(ag, "/rooms", adminMiddleware())

	resourceApi[school.TimetableEntry]{
		create: svc.CreateTimetableEntry, get: svc.GetTimetableEntry, query: svc.QueryTimetable,
		update: svc.UpdateTimetableEntry, destroy: svc.DeleteTimetableEntry,
	}.register(ag, "/timetable", adminMiddleware())

	ag.GET("/dashboard", api.dashboard, adminMiddleware())
}

// Handlers

func (api *schoolApi) saveResults(ctx echo.Context) error {
	var data []school.Result
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to []Result")
	}
	results, err := api.svc.SaveResults(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "saving results")
	}
	return ctx.JSON(http.StatusOK, results)
}

func (api *schoolApi) recordPayment(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	var data school.Payment
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Payment")
	}
	fee, err := api.svc.RecordPayment(ctx.Request().Context(), id, data)
	if err != nil {
		return errors.Wrap(err, "recording payment")
	}
	return ctx.JSON(http.StatusOK, fee)
}

func (api *schoolApi) classTimetable(ctx echo.Context) error {
	id, err := idParam(ctx)
	if err != nil {
		return err
	}
	entries, err := api.svc.ClassTimetable(ctx.Request().Context(), id)
	if err != nil {
		return errors.Wrap(err, "getting class timetable")
	}
	if entries == nil {
		entries = []school.TimetableEntry{}
	}
	return ctx.JSON(http.StatusOK, entries)
}

func (api *schoolApi) dashboard(ctx echo.Context) error {
	dash, err := api.svc.Dashboard(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "getting dashboard")
	}
	return ctx.JSON(http.StatusOK, dash)
}
