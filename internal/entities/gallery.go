package entities

import (
	"time"
)

// UnsavedID is the identifier carried by albums, media objects and metadata
// items that have not been flushed yet.
const UnsavedID uint = 0

type MetadataName string

const (
	MetadataTags         MetadataName = "Tags"
	MetadataPeople       MetadataName = "People"
	MetadataCaption      MetadataName = "Caption"
	MetadataTitle        MetadataName = "Title"
	MetadataDescription  MetadataName = "Description"
	MetadataDateAdded    MetadataName = "DateAdded"
	MetadataFileName     MetadataName = "FileName"
	MetadataRating       MetadataName = "Rating"
	MetadataCameraModel  MetadataName = "CameraModel"
	MetadataDatePictured MetadataName = "DatePictureTaken"
)

// IsTagLike reports whether values of this metadata name are indexed in the
// tag table.
func (n MetadataName) IsTagLike() bool {
	return n == MetadataTags || n == MetadataPeople
}

// RowVersion is the optimistic-concurrency token embedded in every persisted row.
type RowVersion struct {
	Version int `gorm:"not null;default:1" json:"version"`
}

func (v *RowVersion) GetVersion() int {
	return v.Version
}

func (v *RowVersion) SetVersion(version int) {
	v.Version = version
}

type Gallery struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Description string    `gorm:"size:1000" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	RowVersion
}

type Album struct {
	ID             uint    `gorm:"primaryKey" json:"id"`
	GalleryID      uint    `gorm:"index;not null" json:"gallery_id" validate:"required"`
	ParentID       *uint   `gorm:"index" json:"parent_id,omitempty"` // nil for the root album
	Title          string  `gorm:"size:200" json:"title" validate:"required,max=200"`
	Summary        string  `gorm:"type:text" json:"summary,omitempty"`
	Seq            int     `json:"seq"`
	SortByMetaName string  `gorm:"size:50" json:"sort_by_meta_name,omitempty"`
	SortAscending  bool    `gorm:"default:true" json:"sort_ascending"`
	OwnerUserName  string  `gorm:"size:256" json:"owner_user_name,omitempty"`
	CreatedBy      string  `gorm:"size:256" json:"created_by"`
	LastModifiedBy string  `gorm:"size:256" json:"last_modified_by"`
	Gallery        Gallery `gorm:"foreignKey:GalleryID" json:"-" validate:"-"`

	Children     []*Album        `gorm:"foreignKey:ParentID" json:"children,omitempty" validate:"-"`
	MediaObjects []*MediaObject  `gorm:"foreignKey:AlbumID;constraint:OnDelete:CASCADE" json:"media_objects,omitempty" validate:"-"`
	Metadata     []*MetadataItem `gorm:"foreignKey:AlbumID" json:"metadata,omitempty" validate:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	RowVersion
}

// IsRoot reports whether the album sits at the top of its gallery.
func (a *Album) IsRoot() bool {
	return a.ParentID == nil
}

// FileDescriptor describes one rendition of a media object on disk.
type FileDescriptor struct {
	FileName string `gorm:"size:255" json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	SizeKB   int    `json:"size_kb"`
}

type MediaObject struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	AlbumID        uint           `gorm:"index;not null" json:"album_id" validate:"required"`
	Title          string         `gorm:"size:1000" json:"title"`
	Seq            int            `json:"seq"`
	MimeType       string         `gorm:"size:100" json:"mime_type,omitempty"`
	Thumbnail      FileDescriptor `gorm:"embedded;embeddedPrefix:thumbnail_" json:"thumbnail"`
	Optimized      FileDescriptor `gorm:"embedded;embeddedPrefix:optimized_" json:"optimized"`
	Original       FileDescriptor `gorm:"embedded;embeddedPrefix:original_" json:"original"`
	CreatedBy      string         `gorm:"size:256" json:"created_by"`
	LastModifiedBy string         `gorm:"size:256" json:"last_modified_by"`

	Metadata []*MetadataItem `gorm:"foreignKey:MediaObjectID" json:"metadata,omitempty" validate:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	RowVersion
}

type MetadataItem struct {
	ID            uint         `gorm:"primaryKey" json:"id"`
	AlbumID       *uint        `gorm:"index" json:"album_id,omitempty" validate:"required_without=MediaObjectID,excluded_with=MediaObjectID"`
	MediaObjectID *uint        `gorm:"index" json:"media_object_id,omitempty" validate:"required_without=AlbumID,excluded_with=AlbumID"`
	GalleryID     uint         `gorm:"index" json:"gallery_id"`
	Name          MetadataName `gorm:"size:50;not null" json:"name" validate:"required"`
	Value         string       `gorm:"type:text" json:"value"`
	RawValue      string       `gorm:"type:text" json:"raw_value"`

	Tags []*MetadataTag `gorm:"foreignKey:MetadataID" json:"-" validate:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	RowVersion

	hasChanges bool
	isDeleted  bool
}

// NewAlbumMetadata returns an unsaved item attached to an album.
func NewAlbumMetadata(albumID uint, name MetadataName, value string) *MetadataItem {
	item := &MetadataItem{AlbumID: &albumID, Name: name}
	item.SetValue(value, value)
	return item
}

// NewMediaObjectMetadata returns an unsaved item attached to a media object.
func NewMediaObjectMetadata(mediaObjectID uint, name MetadataName, value string) *MetadataItem {
	item := &MetadataItem{MediaObjectID: &mediaObjectID, Name: name}
	item.SetValue(value, value)
	return item
}

// SetValue updates both value forms and flags the item for the next save.
func (m *MetadataItem) SetValue(value, rawValue string) {
	m.Value = value
	m.RawValue = rawValue
	m.hasChanges = true
}

// MarkDeleted schedules the item for removal on the next save.
func (m *MetadataItem) MarkDeleted() {
	m.isDeleted = true
}

// MarkChanged flags the item as dirty without touching its value.
func (m *MetadataItem) MarkChanged() {
	m.hasChanges = true
}

func (m *MetadataItem) HasChanges() bool {
	return m.hasChanges
}

func (m *MetadataItem) IsDeleted() bool {
	return m.isDeleted
}

func (m *MetadataItem) IsNew() bool {
	return m.ID == UnsavedID
}

// ClearChanges resets the dirty flag after a successful flush.
func (m *MetadataItem) ClearChanges() {
	m.hasChanges = false
}

// Row returns a detached copy of the persisted columns, without associations
// or in-memory flags.
func (m *MetadataItem) Row() *MetadataItem {
	return &MetadataItem{
		ID:            m.ID,
		AlbumID:       m.AlbumID,
		MediaObjectID: m.MediaObjectID,
		GalleryID:     m.GalleryID,
		Name:          m.Name,
		Value:         m.Value,
		RawValue:      m.RawValue,
		RowVersion:    m.RowVersion,
	}
}

// Tag is a normalized label; the trimmed name is the primary key.
type Tag struct {
	Name      string    `gorm:"primaryKey;size:100" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	RowVersion
}

// MetadataTag links a Tags or People metadata item to one of its tag names.
type MetadataTag struct {
	MetadataID uint   `gorm:"primaryKey;autoIncrement:false" json:"metadata_id"`
	TagName    string `gorm:"primaryKey;size:100" json:"tag_name"`
	GalleryID  uint   `gorm:"index" json:"gallery_id"`
	Tag        Tag    `gorm:"foreignKey:TagName;references:Name" json:"-"`
	RowVersion
}

func (Gallery) TableName() string {
	return "galleries"
}

func (Album) TableName() string {
	return "albums"
}

func (MediaObject) TableName() string {
	return "media_objects"
}

func (MetadataItem) TableName() string {
	return "metadata_items"
}

func (Tag) TableName() string {
	return "tags"
}

func (MetadataTag) TableName() string {
	return "metadata_tags"
}
