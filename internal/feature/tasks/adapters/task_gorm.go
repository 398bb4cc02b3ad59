// Package adapters はtasksフィーチャーのリポジトリ実装を提供します。
package adapters

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"task_backend/internal/feature/tasks/domain/entity"
	"task_backend/internal/feature/tasks/usecase"
)

// taskGorm はTaskRepositoryインターフェースのGORM実装です。
// すべてのクエリにuser_idの条件を付けます。
type taskGorm struct {
	db *gorm.DB
}

// taskGormがTaskRepositoryを実装していることをコンパイル時に検証します。
var _ usecase.TaskRepository = (*taskGorm)(nil)

// NewTaskGorm は指定されたgorm.DB接続でtaskGormの新しいインスタンスを生成します。
func NewTaskGorm(db *gorm.DB) *taskGorm {
	return &taskGorm{db: db}
}

// owned は所有者で絞り込んだクエリを返します。
func owned(db *gorm.DB, ownerID uint) *gorm.DB {
	return db.Where("user_id = ?", ownerID)
}

// List は所有者のタスクをフィルター付きで取得します。
func (r *taskGorm) List(ctx context.Context, ownerID uint, f entity.ListFilter) ([]entity.Task, error) {
	q := owned(r.db.WithContext(ctx), ownerID)
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.DueBefore != nil {
		q = q.Where("due_date < ?", *f.DueBefore)
	}
	if f.DueAfter != nil {
		q = q.Where("due_date > ?", *f.DueAfter)
	}

	tasks := []entity.Task{}
	if err := q.Order("id").Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

// Find は所有者のタスクをIDで取得します。
// 存在しない場合も他人のタスクの場合もusecase.ErrTaskNotFoundを返します。
func (r *taskGorm) Find(ctx context.Context, ownerID, id uint) (*entity.Task, error) {
	return find(r.db.WithContext(ctx), ownerID, id)
}

func find(db *gorm.DB, ownerID, id uint) (*entity.Task, error) {
	var t entity.Task
	if err := owned(db, ownerID).Where("id = ?", id).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, usecase.ErrTaskNotFound
		}
		return nil, err
	}
	return &t, nil
}

// Create はタスクを保存します。クライアントが何を送っても所有者はownerIDになります。
func (r *taskGorm) Create(ctx context.Context, ownerID uint, t *entity.Task) error {
	if t == nil {
		return errors.New("task is nil")
	}
	t.ID = 0
	t.UserID = ownerID
	if err := r.db.WithContext(ctx).Create(t).Error; err != nil {
		// 所有者が同時に削除された場合は外部キー制約で失敗する
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return usecase.ErrOwnerNotFound
		}
		return err
	}
	return nil
}

// Update は行を読み込み、applyを適用して保存するまでを1つのトランザクションで行います。
// 読み込み時に行ロック（SELECT ... FOR UPDATE）を取り、同じタスクへの更新を直列化します。
// SQLiteはロック句を出力しませんが、接続が1本なので同じく直列になります。
func (r *taskGorm) Update(ctx context.Context, ownerID, id uint, apply func(*entity.Task) error) (*entity.Task, error) {
	var updated *entity.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		t, err := find(tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}), ownerID, id)
		if err != nil {
			return err
		}
		if err := apply(t); err != nil {
			return err
		}
		// 所有者とIDは変更させない
		t.ID, t.UserID = id, ownerID
		if err := tx.Save(t).Error; err != nil {
			return err
		}
		updated = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete は所有者のタスクを削除します。
func (r *taskGorm) Delete(ctx context.Context, ownerID, id uint) error {
	res := owned(r.db.WithContext(ctx), ownerID).Where("id = ?", id).Delete(&entity.Task{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return usecase.ErrTaskNotFound
	}
	return nil
}
