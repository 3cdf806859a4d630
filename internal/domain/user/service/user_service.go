package service

import (
	"time"

	"fansite_payment/internal/domain/user/repository"
)

type UserService interface {
	// ExtendMembership 延长会员有效期
	// 未到期的在现有到期时间上累加，已过期或非会员从当前时间起算
	ExtendMembership(userID string, d time.Duration) error
}

type userService struct {
	repo repository.UserRepository
}

func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

func (s *userService) ExtendMembership(userID string, d time.Duration) error {
	user, err := s.repo.GetByID(userID)
	if err != nil {
		return err
	}

	base := time.Now()
	if user.IsMember && user.MemberExpireAt != nil && user.MemberExpireAt.After(base) {
		base = *user.MemberExpireAt
	}

	return s.repo.UpdateMemberStatus(userID, base.Add(d))
}
