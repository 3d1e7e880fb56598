package db

import (
	"github.com/mercatohq/mercato/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type NotificationRepository interface {
	CreateNotification(notification *models.Notification) error
	FindNotificationByID(id uint) (*models.Notification, error)
	GetUnreadNotifications(recipientID uint, offset, limit int) ([]models.Notification, error)
	MarkNotificationRead(id uint) error
	MarkAllNotificationsRead(recipientID uint) error
	NotificationStats(recipientID uint) (*models.NotificationStats, error)
}

type notificationRepo struct {
	DB *gorm.DB
}

func NewNotificationRepo(db *GormDB) NotificationRepository {
	return &notificationRepo{db.DB}
}

func (r *notificationRepo) CreateNotification(notification *models.Notification) error {
	if err := r.DB.Create(notification).Error; err != nil {
		return errors.Wrap(err, "could not create notification")
	}
	return nil
}

func (r *notificationRepo) FindNotificationByID(id uint) (*models.Notification, error) {
	var notification models.Notification
	if err := r.DB.Preload("Actor").First(&notification, id).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

func (r *notificationRepo) GetUnreadNotifications(recipientID uint, offset, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := r.DB.
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Preload("Actor").
		Find(&notifications).Error
	if err != nil {
		return nil, errors.Wrap(err, "could not fetch notifications")
	}
	return notifications, nil
}

func (r *notificationRepo) MarkNotificationRead(id uint) error {
	err := r.DB.Model(&models.Notification{}).
		Where("id = ?", id).
		Update("is_read", true).Error
	if err != nil {
		return errors.Wrap(err, "could not mark notification read")
	}
	return nil
}

func (r *notificationRepo) MarkAllNotificationsRead(recipientID uint) error {
	err := r.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Update("is_read", true).Error
	if err != nil {
		return errors.Wrap(err, "could not mark notifications read")
	}
	return nil
}

// NotificationStats runs aggregate queries, never materializing rows.
func (r *notificationRepo) NotificationStats(recipientID uint) (*models.NotificationStats, error) {
	stats := &models.NotificationStats{}
	err := r.DB.Model(&models.Notification{}).
		Where("recipient_id = ?", recipientID).
		Count(&stats.Total).Error
	if err != nil {
		return nil, errors.Wrap(err, "gorm.count error")
	}
	err = r.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", recipientID, false).
		Count(&stats.Unread).Error
	if err != nil {
		return nil, errors.Wrap(err, "gorm.count error")
	}
	return stats, nil
}
