package repository

import (
    "context"
    "database/sql"

    "github.com/iliyamo/course-slot-booking/internal/model"
)

// ProductRepo reads course products.  Products themselves belong to
// the catalog; this service only needs the course_enabled flag that
// gates whether a product participates in slot booking at all.
type ProductRepo struct {
    db *sql.DB
}

// NewProductRepo constructs a ProductRepo with the given DB handle.
func NewProductRepo(db *sql.DB) *ProductRepo {
    return &ProductRepo{db: db}
}

// GetByID returns a product by id, or ErrProductNotFound.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (*model.Product, error) {
    const q = `SELECT id, name, course_enabled FROM products WHERE id = ?`
    var p model.Product
    err := r.db.QueryRowContext(ctx, q, id).Scan(&p.ID, &p.Name, &p.CourseEnabled)
    if err == sql.ErrNoRows {
        return nil, ErrProductNotFound
    }
    if err != nil {
        return nil, err
    }
    return &p, nil
}

// SetCourseEnabled toggles slot booking for a product.
func (r *ProductRepo) SetCourseEnabled(ctx context.Context, id uint64, enabled bool) error {
    res, err := r.db.ExecContext(ctx, `UPDATE products SET course_enabled = ? WHERE id = ?`, enabled, id)
    if err != nil {
        return err
    }
    if n, err := res.RowsAffected(); err == nil && n == 0 {
        if _, gerr := r.GetByID(ctx, id); gerr != nil {
            return gerr
        }
    }
    return nil
}
