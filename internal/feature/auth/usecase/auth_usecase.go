package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"task_backend/internal/feature/auth/domain/entity"
	"task_backend/internal/shared/validation"
)

const (
	// maxPasswordBytes はbcryptが扱える入力の上限です。
	maxPasswordBytes = 72

	// fallbackDummyHash はダミーハッシュを生成できなかった場合に使います。
	fallbackDummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

	// loginKeyPrefix はログイン試行回数を数えるキーの接頭辞です。
	loginKeyPrefix = "login:"
)

// UserRepository はユーザーエンティティの永続化層を抽象化します。
// Goの慣例に従い、インターフェースはプロバイダー（adapters）ではなくコンシューマー（usecase）が定義します。
type UserRepository interface {
	// Create は新しいユーザーをストレージに永続化します。
	// 同じメールアドレスのユーザーが既に存在する場合、ErrEmailAlreadyExistsを返します。
	Create(ctx context.Context, user *entity.User) error

	// FindByEmail は指定されたメールアドレスに一致するユーザーを取得します。
	// ユーザーが存在しない場合、ErrUserNotFoundを返します。
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// FindByID は指定されたIDに一致するユーザーを取得します。
	// ユーザーが存在しない場合、ErrUserNotFoundを返します。
	FindByID(ctx context.Context, id uint) (*entity.User, error)

	// Delete はユーザーと、そのユーザーが所有するすべてのレコードを1つのトランザクションで削除します。
	// ユーザーが存在しない場合、ErrUserNotFoundを返します。
	Delete(ctx context.Context, id uint) error
}

// TokenIssuer は認証済みユーザーのトークンを発行します。
type TokenIssuer interface {
	Issue(userID uint) (string, error)
}

// LoginLimiter はキーごとのログイン試行回数を制限します。
type LoginLimiter interface {
	// Allow は試行を1回数え、上限内ならtrueを返します。falseの場合は再試行までの待ち時間も返します。
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
	// Reset はキーの試行回数をクリアします。
	Reset(ctx context.Context, key string) error
}

// AuthResult は登録・ログイン成功時の結果です。
type AuthResult struct {
	User  *entity.User
	Token string
}

// registration is validated before any write.
type registration struct {
	Email    string `label:"Email" validate:"required,email,max=255"`
	Password string `label:"Password" validate:"required,min=6"`
}

// authUsecase は認証ビジネスロジックを実装します。
type authUsecase struct {
	users     UserRepository
	tokens    TokenIssuer
	limiter   LoginLimiter
	validate  *validation.Validator
	cost      int
	dummyHash []byte
}

// NewAuthUsecase はauthUsecaseの新しいインスタンスを生成します。
// limiterがnilの場合、ログイン試行回数は制限しません。
func NewAuthUsecase(users UserRepository, tokens TokenIssuer, limiter LoginLimiter, bcryptCost int) *authUsecase {
	// ユーザーが存在しない場合でも同じコストで比較するためのダミーハッシュ
	dummy, err := bcrypt.GenerateFromPassword([]byte("timing-equalizer"), bcryptCost)
	if err != nil {
		dummy = []byte(fallbackDummyHash)
	}
	return &authUsecase{
		users:     users,
		tokens:    tokens,
		limiter:   limiter,
		validate:  validation.New(),
		cost:      bcryptCost,
		dummyHash: dummy,
	}
}

// NormalizeEmail trims surrounding space and lower-cases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register は新規ユーザーを登録し、そのユーザーのトークンを返します。
// 入力エラーは*validation.Errorで返します。
func (u *authUsecase) Register(ctx context.Context, email, password string) (*AuthResult, error) {
	in := registration{Email: NormalizeEmail(email), Password: password}

	// 1. 形式チェック
	var verr *validation.Error
	if err := u.validate.Struct(in); err != nil {
		if !errors.As(err, &verr) {
			return nil, err
		}
	}
	// bcryptの上限はバイト数なので、文字数で数えるvalidatorとは別に確認する
	if len(in.Password) > maxPasswordBytes {
		verr = validation.Merge(verr, validation.NewError(fmt.Sprintf("Password is too long (maximum is %d bytes)", maxPasswordBytes)))
	}

	// 2. 一意性チェック
	if verr == nil || !hasPrefix(verr.Messages, "Email") {
		_, err := u.users.FindByEmail(ctx, in.Email)
		switch {
		case err == nil:
			verr = validation.Merge(verr, validation.NewError("Email has already been taken"))
		case !errors.Is(err, ErrUserNotFound):
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
	}
	if verr != nil {
		return nil, verr
	}

	// 3. 保存とトークン発行
	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), u.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &entity.User{Email: in.Email, PasswordHash: string(hashed)}
	if err := u.users.Create(ctx, user); err != nil {
		// 同時登録で一意制約に負けた場合も同じ入力エラーにする
		if errors.Is(err, ErrEmailAlreadyExists) {
			return nil, validation.NewError("Email has already been taken")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := u.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Login はユーザーを認証し、成功時にトークンを返します。
// メールアドレス不明とパスワード不一致はどちらもErrInvalidCredentialsになります。
// タイミング攻撃を防止するため、ユーザーが存在しない場合でもbcrypt比較を実行します。
func (u *authUsecase) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)
	key := loginKeyPrefix + email

	if u.limiter != nil {
		allowed, retryAfter, err := u.limiter.Allow(ctx, key)
		switch {
		case err != nil:
			// 制限ストアの障害ではログインを止めない
			slog.Warn("login limiter unavailable", "error", err)
		case !allowed:
			return nil, &ThrottledError{RetryAfter: retryAfter}
		}
	}

	user, err := u.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	passwordHash := u.dummyHash
	if user != nil {
		passwordHash = []byte(user.PasswordHash)
	}

	// 第1引数はハッシュ化パスワード、第2引数は平文パスワード
	compareErr := bcrypt.CompareHashAndPassword(passwordHash, []byte(password))
	if user == nil || compareErr != nil {
		return nil, ErrInvalidCredentials
	}

	if u.limiter != nil {
		if err := u.limiter.Reset(ctx, key); err != nil {
			slog.Warn("failed to reset login attempts", "error", err)
		}
	}

	token, err := u.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// FindByID はIDでユーザーを取得します。認証ゲートから呼ばれます。
func (u *authUsecase) FindByID(ctx context.Context, id uint) (*entity.User, error) {
	if id == 0 {
		return nil, ErrUserNotFound
	}
	return u.users.FindByID(ctx, id)
}

// DeleteAccount はユーザーと所有するタスクをすべて削除します。
// 削除後、そのユーザーのトークンは認証ゲートで拒否されます。
func (u *authUsecase) DeleteAccount(ctx context.Context, id uint) error {
	if id == 0 {
		return ErrUserNotFound
	}
	return u.users.Delete(ctx, id)
}

func hasPrefix(messages []string, prefix string) bool {
	for _, m := range messages {
		if strings.HasPrefix(m, prefix) {
			return true
		}
	}
	return false
}
